package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_ForwardsSelectedRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	incoming := http.Header{}
	incoming.Set("Accept", "text/html")
	incoming.Set("User-Agent", "test-agent")
	incoming.Set("Accept-Language", "en-US")
	incoming.Set("Cookie", "secret=1")
	incoming.Set("Authorization", "Basic abc")

	_, err = client.Fetch(context.Background(), "/story/1", incoming)
	require.NoError(t, err)

	assert.Equal(t, "text/html", got.Get("Accept"))
	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.Equal(t, "en-US", got.Get("Accept-Language"))
	// 凭据类头不透传给上游
	assert.Empty(t, got.Get("Cookie"))
	assert.Empty(t, got.Get("Authorization"))
}

func TestFetch_StripsDenylistedResponseHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Etag", `"abc"`)
		w.Header().Set("X-Custom", "keep-me")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	result, err := client.Fetch(context.Background(), "/", http.Header{})
	require.NoError(t, err)

	assert.Empty(t, result.Header.Get("Etag"))
	assert.Empty(t, result.Header.Get("Content-Length"))
	assert.Equal(t, "keep-me", result.Header.Get("X-Custom"))
	assert.True(t, result.IsHTML())
	assert.Equal(t, []byte("<html></html>"), result.Body)
}

func TestFetch_NonHTMLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte{0x47, 0x49, 0x46})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	result, err := client.Fetch(context.Background(), "/images/a.gif", http.Header{})
	require.NoError(t, err)
	assert.False(t, result.IsHTML())
}

func TestFetch_PreservesUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	result, err := client.Fetch(context.Background(), "/missing", http.Header{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestFetch_UnreachableUpstream(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "/", http.Header{})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNewClient_RejectsRelativeOrigin(t *testing.T) {
	_, err := NewClient("www.homestuck.com", 5*time.Second)
	assert.Error(t, err)
}
