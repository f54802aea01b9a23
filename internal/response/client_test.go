package response

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) Client {
	return &clientImpl{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/response/workflows/inc-1/status", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":"PROGRESS","info":{"current_step":"block_ip"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	payload, err := client.FetchStatus(context.Background(), "inc-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "PROGRESS", payload.State)
	info, ok := payload.Info.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "block_ip", info["current_step"])
}

func TestFetchStatusNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "inc-1", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchStatusMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "inc-1", "tok")
	require.Error(t, err)
}

func TestPostAction(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/response/workflows/inc-1/action", r.URL.Path)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.PostAction(context.Background(), "inc-1", "tok", "force_next")
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"force_next"}`, gotBody)
}

func TestPostActionNotFoundIsUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.PostAction(context.Background(), "inc-1", "tok", "skip_step")
	assert.ErrorIs(t, err, ErrActionUnsupported)
}

func TestPostActionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.PostAction(context.Background(), "inc-1", "tok", "cancel")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrActionUnsupported)
}
