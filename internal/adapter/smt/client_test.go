package smt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

const (
	testUser  = "customer@example.com"
	testPass  = "hunter2"
	testToken = "session-token-1"
)

// portalStub mimics the portal's auth-then-fetch flow.
func portalStub(t *testing.T, usage usageResponse) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != testUser || req.Password != testPass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(authResponse{Token: testToken}) //nolint:errcheck
	})

	mux.HandleFunc("GET /v1/usage/monthly", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(usage) //nolint:errcheck
	})

	return httptest.NewServer(mux)
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 2*time.Second, slog.Default())
}

func TestFetchUsage(t *testing.T) {
	srv := portalStub(t, usageResponse{
		ESIID:     "10443720004529860174",
		AnnualKWh: 13100,
		Monthly: []monthlyUsage{
			{Year: 2024, Month: 9, KWh: 1210},
			{Year: 2024, Month: 10, KWh: 980},
		},
	})
	defer srv.Close()

	usage, err := newTestClient(srv.URL).FetchUsage(context.Background(), testUser, testPass)
	require.NoError(t, err)

	assert.Equal(t, "10443720004529860174", usage.ESIID)
	assert.InDelta(t, 13100, usage.AnnualKWh, 0.001)
	require.Len(t, usage.Monthly, 2)
	assert.Equal(t, domain.MonthlyUsage{Year: 2024, Month: 9, KWh: 1210}, usage.Monthly[0])
}

func TestFetchUsageEstimationFlags(t *testing.T) {
	srv := portalStub(t, usageResponse{AnnualKWh: 9000, IsEstimated: true, IsNewHome: true})
	defer srv.Close()

	usage, err := newTestClient(srv.URL).FetchUsage(context.Background(), testUser, testPass)
	require.NoError(t, err)
	assert.True(t, usage.IsEstimated)
	assert.True(t, usage.IsNewHome)
}

func TestFetchUsageBadCredentials(t *testing.T) {
	srv := portalStub(t, usageResponse{})
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUsage(context.Background(), testUser, "wrong")
	require.Error(t, err)

	var authErr *domain.AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestFetchUsagePortalDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUsage(context.Background(), testUser, testPass)
	require.Error(t, err)

	var authErr *domain.AuthError
	assert.False(t, errors.As(err, &authErr))
}

func TestFetchUsageEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(authResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUsage(context.Background(), testUser, testPass)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}
