package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aminexfrad/F-S-SHOP/internal/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRouter_Health(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := httptest.NewServer(newRouter(backendtest.New(), zap.New(core)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRouter_EchoesRequestID(t *testing.T) {
	srv := httptest.NewServer(newRouter(backendtest.New(), zap.NewNop()))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/graphql/", strings.NewReader(`{"query":"{ products { id } }"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("SEED", "false")

	cfg := loadConfig()

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.False(t, cfg.Seed)
}
