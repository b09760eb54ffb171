package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"proctor/internal/platform/config"
)

func TestNew_NoWriteTimeoutForStreams(t *testing.T) {
	srv := New(config.Server{Addr: ":9090"}, http.NotFoundHandler())

	assert.Equal(t, ":9090", srv.Addr)
	assert.Zero(t, srv.WriteTimeout)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, maxHeaderBytes, srv.MaxHeaderBytes)
}
