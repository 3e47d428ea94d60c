package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/config"
	"github.com/harshssd/HyperFit-sub001/internal/db"
	"github.com/harshssd/HyperFit-sub001/internal/middleware"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/metrics"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
	"github.com/harshssd/HyperFit-sub001/internal/templates"
	"github.com/harshssd/HyperFit-sub001/internal/workout"
	"github.com/harshssd/HyperFit-sub001/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service
	usersRepo    *auth.UsersRepo

	workoutRepo     *workout.Repo
	workoutService  *workout.Service
	templateCatalog *templates.Catalog

	cronJobs *cron.Cron

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "hyperfit_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("hyperfit", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(auth.DefaultTTL, rdb)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "hyperfit-backend")
	if err != nil {
		return nil, err
	}

	workoutRepo := workout.NewRepo(dbPool, rdb)
	workoutService := workout.NewService(workoutRepo, metricsManager)
	templateCatalog := templates.NewCatalog(templates.NewRepo(dbPool))

	s := &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		usersRepo:    auth.NewUsersRepo(dbPool),
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		workoutRepo:     workoutRepo,
		workoutService:  workoutService,
		templateCatalog: templateCatalog,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if err := s.setupCronJobs(ctx); err != nil {
		return nil, fmt.Errorf("setup cron jobs: %w", err)
	}

	return s, nil
}

// setupCronJobs schedules the session cleanup sweep and the nightly
// check-in streak gauge refresh.
func (s *Server) setupCronJobs(ctx context.Context) error {
	s.cronJobs = cron.New()

	if err := s.cronJobs.AddFunc("@every 8h", func() {
		s.authService.ScanAndClean(ctx)
	}); err != nil {
		return fmt.Errorf("add session cleanup job: %w", err)
	}

	if err := s.cronJobs.AddFunc("@daily", func() {
		s.refreshStreakGauges(ctx)
	}); err != nil {
		return fmt.Errorf("add streak gauge job: %w", err)
	}

	s.cronJobs.Start()
	return nil
}

func (s *Server) refreshStreakGauges(ctx context.Context) {
	userIDs, err := s.workoutRepo.UserIDs(ctx)
	if err != nil {
		log.Errorf("refresh streak gauges, list users: %s", err)
		return
	}

	day := pkg.DayKey(time.Now().UTC())
	for _, userID := range userIDs {
		ud, err := s.workoutRepo.Get(ctx, userID)
		if err != nil {
			log.Errorf("refresh streak gauge for %s: %s", userID, err)
			continue
		}
		s.metricsManager.GaugeCheckInStreak.
			With(prometheus.Labels{"user": userID}).
			Set(float64(ud.Streak(day)))
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("hyperfit-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authSubrouter := r.PathPrefix("/a").Subrouter()
	// rate limit the auth endpoints to prevent abuse
	authSubrouter.Use(middleware.RateLimit(reqRateLimiter, "auth", s.config.LoginRateLimitAllowedPerMin, s.metricsManager))
	authHandler := auth.NewHandler(s.authService, s.usersRepo)
	authHandler.SetupRoutes(authSubrouter)

	workoutHandler := workout.NewHandler(s.workoutService)
	workoutHandler.SetupRoutes(r.PathPrefix("/workout").Subrouter())

	templatesHandler := templates.NewHandler(s.templateCatalog, s.usersRepo, s.metricsManager)
	templatesHandler.SetupRoutes(r.PathPrefix("/templates").Subrouter())

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, fmt.Sprintf("hyperfit backend, version: %s", s.versionInfo))
	}).Methods("GET").Name("root")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if s.cronJobs != nil {
		s.cronJobs.Stop()
	}

	// let in-flight state saves land before connections close
	s.workoutService.WaitSaves()

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
