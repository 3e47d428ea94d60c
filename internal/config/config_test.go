package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigToml = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "hyperfit"
redis_host = "localhost"
redis_port = "6379"

[production]
host = ""
port = 8080
log_level = "debug"
logs_path = "/var/log/hyperfit/service.log"
postgres_host = "db"
postgres_port = "5432"
postgres_db_name = "hyperfit"
redis_host = "redis"
redis_port = "6379"
login_rate_limit_allowed_per_min = 10
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigToml), 0o600))

	devCfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", devCfg.Environment)
	assert.Equal(t, 9000, devCfg.Port)
	assert.Equal(t, "trace", devCfg.LogLevel)
	assert.True(t, devCfg.LogToStdout)
	// default applied when not set in the file
	assert.Equal(t, 15, devCfg.LoginRateLimitAllowedPerMin)

	prodCfg, err := Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 8080, prodCfg.Port)
	assert.Equal(t, "/var/log/hyperfit/service.log", prodCfg.LogsPath)
	assert.Equal(t, 10, prodCfg.LoginRateLimitAllowedPerMin)

	_, err = Load("staging", path)
	require.Error(t, err)

	_, err = Load("prod", filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
