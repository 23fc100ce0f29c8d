package activityclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/activityclient"
)

func TestInvoke_SuccessOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"hi"}`))
	}))
	defer srv.Close()

	inv := activityclient.New()
	result := inv.Invoke(context.Background(), activityclient.Request{ActionName: "ping", Endpoint: srv.URL})

	require.Equal(t, activityclient.StatusSuccess, result.Status)
	assert.Equal(t, "hi", result.Data["value"])
}

func TestInvoke_RetriesOn5xxExactlyMaxAttemptsThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	inv := activityclient.New()
	result := inv.Invoke(context.Background(), activityclient.Request{ActionName: "flaky", Endpoint: srv.URL})

	assert.Equal(t, activityclient.StatusFailed, result.Status)
	assert.Equal(t, int32(activityclient.MaxAttempts), atomic.LoadInt32(&calls))
}

func TestInvoke_4xxIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	inv := activityclient.New()
	result := inv.Invoke(context.Background(), activityclient.Request{ActionName: "bad-request", Endpoint: srv.URL})

	assert.Equal(t, activityclient.StatusFailed, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvoke_SucceedsAfterTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	inv := activityclient.New()
	result := inv.Invoke(context.Background(), activityclient.Request{ActionName: "eventually-ok", Endpoint: srv.URL})

	require.Equal(t, activityclient.StatusSuccess, result.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvoke_BasicAuthSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	inv := activityclient.New()
	result := inv.Invoke(context.Background(), activityclient.Request{
		ActionName:   "authed",
		Endpoint:     srv.URL,
		AuthUser:     "svc",
		AuthPassword: "secret",
	})

	assert.Equal(t, activityclient.StatusSuccess, result.Status)
}
