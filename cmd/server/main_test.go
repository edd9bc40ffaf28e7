package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-management-system/internal/config"
	"github.com/iliyamo/event-management-system/internal/server"
	"github.com/iliyamo/event-management-system/internal/testutil"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"EMS_SERVER_PIPE", "EMS_ACCESS_DELAY_US", "EMS_POOL_SIZE", "EMS_OPS_ADDR", "LOG_LEVEL", "RABBITMQ_URL", "AMQP_URL"} {
		t.Setenv(k, "")
	}
}

func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "none.env")
}

func TestLoadConfigPositionalArgs(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig([]string{noEnvFile(t), "/tmp/ems.srv", "1500"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ems.srv", cfg.ServerPipe)
	assert.Equal(t, 1500*time.Microsecond, cfg.AccessDelay)
	assert.Equal(t, config.DefaultPoolSize, cfg.PoolSize)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMS_SERVER_PIPE", "/tmp/from-env")
	t.Setenv("EMS_POOL_SIZE", "4")
	t.Setenv("EMS_OPS_ADDR", ":1")

	cfg, err := loadConfig([]string{noEnvFile(t), "--pool-size=2", "--ops-addr="})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env", cfg.ServerPipe)
	assert.Equal(t, 2, cfg.PoolSize)
	assert.Empty(t, cfg.OpsAddr)
}

func TestLoadConfigPipeAndDelayFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig([]string{noEnvFile(t), "--pipe=/tmp/flag.srv", "--delay-us=20"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flag.srv", cfg.ServerPipe)
	assert.Equal(t, 20*time.Microsecond, cfg.AccessDelay)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	clearEnv(t)
	_, err := loadConfig([]string{noEnvFile(t)})
	require.Error(t, err, "missing pipe path")

	_, err = loadConfig([]string{noEnvFile(t), "/tmp/s", "-3"})
	require.Error(t, err)

	_, err = loadConfig([]string{noEnvFile(t), "/tmp/s", "4294967296"})
	require.Error(t, err)

	_, err = loadConfig([]string{noEnvFile(t), "/tmp/s", "1", "extra"})
	require.Error(t, err)

	_, err = loadConfig([]string{noEnvFile(t), "--pool-size=0", "/tmp/s"})
	require.Error(t, err)
}

func TestOpsServerRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(server.Options{
		PipePath: filepath.Join(testutil.PipeDir(t), "server"),
		PoolSize: 1,
		DumpOut:  io.Discard,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, srv.Store().Create(1, 1, 1))

	e := newOpsServer(config.Config{}, srv, nil, logger)
	for path, want := range map[string]int{
		"/healthz":     http.StatusOK,
		"/v1/events":   http.StatusOK,
		"/v1/events/1": http.StatusOK,
		"/v1/events/2": http.StatusNotFound,
		"/v1/sessions": http.StatusOK,
		"/v1/status":   http.StatusOK,

		"/v1/directory/sessions": http.StatusServiceUnavailable,
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
