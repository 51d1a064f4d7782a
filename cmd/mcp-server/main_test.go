package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHTTPServerBoundsHeaderReads(t *testing.T) {
	handler := http.NewServeMux()
	srv := newHTTPServer("127.0.0.1:0", handler)

	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Same(t, handler, srv.Handler)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Positive(t, srv.ReadHeaderTimeout)
	assert.Positive(t, srv.IdleTimeout)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RAG_TEST_PORT", "9090")
	assert.Equal(t, "9090", getEnv("RAG_TEST_PORT", "8080"))
	assert.Equal(t, "8080", getEnv("RAG_TEST_UNSET_PORT", "8080"))
}
