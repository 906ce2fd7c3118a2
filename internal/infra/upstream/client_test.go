package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Service: domain.ServiceDDI,
	})
	require.NoError(t, err)
	return client
}

func TestClient_RequiresAPIKey(t *testing.T) {
	_, err := New(Options{BaseURL: "https://example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClient_AuthAndContentHeaders(t *testing.T) {
	var gotAuth, gotContentType, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/api/ddi/v1/ipam/subnet", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Token test-key", gotAuth)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "application/json", gotAccept)
}

func TestClient_DeleteOmitsContentType(t *testing.T) {
	var gotContentType string
	sawHeader := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_, sawHeader = r.Header["Content-Type"]
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := client.Do(context.Background(), http.MethodDelete, "/api/ddi/v1/ipam/subnet/abc", nil, nil)
	require.NoError(t, err)
	require.Empty(t, gotContentType)
	require.False(t, sawHeader)
	require.Equal(t, map[string]any{"success": true}, resp)
}

func TestClient_EmptyBodyVariantsDecodeToSuccess(t *testing.T) {
	for _, body := range []string{"", "{}", "  "} {
		body := body
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
		require.NoError(t, err, "body %q", body)
		require.Equal(t, map[string]any{"success": true}, resp)
	}
}

func TestClient_ClassifiesRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	require.Equal(t, domain.KindRateLimited, domain.KindFrom(err))
	require.Equal(t, 2*time.Second, domain.RetryAfterFrom(err))
	require.Equal(t, http.StatusTooManyRequests, domain.StatusFrom(err))
}

func TestClient_ClassifiesServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Equal(t, domain.KindUpstreamServerError, domain.KindFrom(err))
	require.Equal(t, http.StatusInternalServerError, domain.StatusFrom(err))
}

func TestClient_ClassifiesClientErrorAndNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		http.Error(w, "bad", http.StatusBadRequest)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	require.Equal(t, domain.KindNotFound, domain.KindFrom(err))

	_, err = client.Do(context.Background(), http.MethodGet, "/bad", nil, nil)
	require.Equal(t, domain.KindUpstreamClientError, domain.KindFrom(err))
	require.False(t, domain.RetryAdvised(err))
}

func TestClient_ClassifiesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client, err := New(Options{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Equal(t, domain.KindTransportError, domain.KindFrom(err))
	require.True(t, domain.RetryAdvised(err))
}

func TestClient_ClassifiesCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.Equal(t, domain.KindCancelled, domain.KindFrom(err))
}

func TestClient_ClassifiesDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.Equal(t, domain.KindTimeout, domain.KindFrom(err))

	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
}

func TestClient_ForwardsIdempotencyKey(t *testing.T) {
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"ok":true}`))
	})

	ctx := WithIdempotencyKey(context.Background(), "fingerprint-1")
	_, err := client.Do(ctx, http.MethodPost, "/x", nil, map[string]any{"a": 1})
	require.NoError(t, err)
	require.Equal(t, "fingerprint-1", gotKey)
}
