package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckHealthySite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>catalogue</html>"))
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, p.Check(context.Background(), srv.URL))
}

func TestCheckServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second}, zap.NewNop())
	require.Error(t, p.Check(context.Background(), srv.URL))
}

func TestCheckUnreachableHost(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: time.Second}, zap.NewNop())
	require.Error(t, p.Check(context.Background(), "http://127.0.0.1:1"))
}
