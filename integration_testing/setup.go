package integration_testing

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/harshssd/HyperFit-sub001/internal"
	"github.com/harshssd/HyperFit-sub001/internal/config"
)

const (
	serverPort = 9000
	serverHost = "localhost"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

type Suite struct {
	DB         *sql.DB
	dockerPool *dockertest.Pool
	server     *internal.Server
	teardown   []func()
}

func newSuite(ctx context.Context) (_ *Suite) {
	var err error
	suite := &Suite{
		teardown: make([]func(), 0),
	}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	suite.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not create new dockertest pool: %s", err)
	}

	// uses pool to try to connect to Docker
	if err = suite.dockerPool.Client.Ping(); err != nil {
		log.Fatalf("could not ping dockertest pool: %s", err)
	}

	redisPort, err := suite.redisSetup()
	if err != nil {
		suite.cleanup()
		log.Fatalf("failed to setup redis: %s", err.Error())
	}

	pgPort, err := suite.postgresSetup()
	if err != nil {
		suite.cleanup()
		log.Fatalf("failed to setup postgres: %s", err)
	}

	cfg := getTestConfig(redisPort, pgPort)
	suite.server, err = internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             "test-version-info",
			RedisPassword:           "",
			HoneycombTracingEnabled: false,
		},
	)
	if err != nil {
		suite.cleanup()
		log.Fatalf("new server: %s", err)
	}

	suite.server.Serve(ctx, cfg.Host, cfg.Port)

	return suite
}

func (s *Suite) cleanup() {
	if s.DB != nil {
		s.DB.Close()
	}
	for _, teardown := range s.teardown {
		teardown()
	}
	if s.server != nil {
		s.server.GracefulShutdown()
	}
}

func getTestConfig(redisPort, postgresPort string) *config.Config {
	return &config.Config{
		Host:           serverHost,
		Port:           serverPort,
		RedisHost:      "localhost",
		RedisPort:      redisPort,
		PostgresPort:   postgresPort,
		PostgresHost:   "localhost",
		PostgresDBName: "hyperfit_db",

		PrometheusMetricsHost: "localhost",
		PrometheusMetricsPort: "9001",

		LoginRateLimitAllowedPerMin: 100,
	}
}

func (s *Suite) redisSetup() (string, error) {
	redisResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "6.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %s", err)
	}

	s.teardown = append(s.teardown, func() {
		redisResource.Close()
	})

	redisPort := redisResource.GetPort("6379/tcp")
	return redisPort, nil
}

func (s *Suite) postgresSetup() (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "12",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_HOST_AUTH_METHOD=trust",
			"POSTGRES_DB=hyperfit_db",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %s", err)
	}

	s.teardown = append(s.teardown, func() {
		pgResource.Close()
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf("postgres://postgres@localhost:%s/hyperfit_db?sslmode=disable", pgPort)
	// the container needs a moment before it accepts connections
	if err := s.dockerPool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return err
		}
		s.DB = db
		return nil
	}); err != nil {
		return "", fmt.Errorf("connect to postgres: %s", err)
	}

	if _, err := s.DB.Exec(initSQL); err != nil {
		return "", fmt.Errorf("run init script: %s", err)
	}

	return pgPort, nil
}

const initSQL = `
CREATE TABLE public.app_user
(
    id            VARCHAR PRIMARY KEY,
    email         VARCHAR NOT NULL UNIQUE,
    username      VARCHAR NOT NULL,
    password_hash VARCHAR NOT NULL,
    created_at    TIMESTAMP WITHOUT TIME ZONE NOT NULL
);

ALTER TABLE public.app_user OWNER TO postgres;
CREATE INDEX ix_app_user_email ON public.app_user (email);

CREATE TABLE public.user_state
(
    user_id    VARCHAR PRIMARY KEY REFERENCES public.app_user (id),
    data       JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE public.user_state OWNER TO postgres;

CREATE TABLE public.template_folder
(
    id    VARCHAR PRIMARY KEY,
    owner VARCHAR NOT NULL,
    name  VARCHAR NOT NULL,
    color VARCHAR,
    icon  VARCHAR
);

ALTER TABLE public.template_folder OWNER TO postgres;
CREATE INDEX ix_template_folder_owner ON public.template_folder (owner);

CREATE TABLE public.workout_template
(
    id                  VARCHAR PRIMARY KEY,
    name                VARCHAR NOT NULL,
    description         VARCHAR,
    icon                VARCHAR,
    exercises           VARCHAR[] NOT NULL DEFAULT '{}',
    owner               VARCHAR,
    folder_id           VARCHAR REFERENCES public.template_folder (id),
    tags                VARCHAR[] NOT NULL DEFAULT '{}',
    is_standard         BOOLEAN NOT NULL DEFAULT FALSE,
    is_public           BOOLEAN NOT NULL DEFAULT FALSE,
    created_by_username VARCHAR,
    created_at          TIMESTAMP WITHOUT TIME ZONE NOT NULL
);

ALTER TABLE public.workout_template OWNER TO postgres;
CREATE INDEX ix_workout_template_owner ON public.workout_template (owner);
CREATE INDEX ix_workout_template_created_at ON public.workout_template (created_at);

CREATE TABLE public.template_favorite
(
    owner       VARCHAR NOT NULL,
    template_id VARCHAR NOT NULL,
    PRIMARY KEY (owner, template_id)
);

ALTER TABLE public.template_favorite OWNER TO postgres;
`
