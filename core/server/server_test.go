package server_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppwatch/gateway/core/server"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ServesAndStops(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := server.New(addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "ok")
		}))
	}()
	waitForServer(t, addr)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop())
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := server.New(addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Start(ctx, http.NotFoundHandler()) //nolint:errcheck
	waitForServer(t, addr)

	err := srv.Start(ctx, http.NotFoundHandler())
	assert.ErrorIs(t, err, server.ErrAlreadyRunning)

	require.NoError(t, srv.Stop())
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := server.New(addr, server.WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.NotFoundHandler())()
	}()
	waitForServer(t, addr)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "context cancellation is a clean shutdown")
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing address", func(t *testing.T) {
		t.Parallel()
		_, err := server.NewFromConfig(server.Config{})
		assert.ErrorIs(t, err, server.ErrMissingAddress)
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		srv, err := server.NewFromConfig(server.Config{
			Addr:            ":0",
			ReadTimeout:     5 * time.Second,
			ShutdownTimeout: time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, srv)
	})

	t.Run("bad TLS files", func(t *testing.T) {
		t.Parallel()
		_, err := server.NewFromConfig(server.Config{
			Addr:        ":0",
			TLSCertFile: "/nonexistent/cert.pem",
			TLSKeyFile:  "/nonexistent/key.pem",
		})
		assert.Error(t, err)
	})
}
