package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

func TestFetchConditionalGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "test", URL: srv.URL}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feedBody, string(first.Body))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feedBody, string(second.Body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	var broken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if broken.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "test", URL: srv.URL}

	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	broken.Store(true)
	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, feedBody, string(res.Body))
}

func TestFetchEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), Source{ID: "x"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/cal/private.ics?token=abc"))
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
