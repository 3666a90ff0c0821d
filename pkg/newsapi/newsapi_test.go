package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListNews(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `[
		{"id": 5, "title": "خبر", "description": "وصف", "content": "<p>نص</p>",
		 "date": "2024-05-01", "author": "admin", "news_images": [{"path": "/x.jpg"}]}
	]`)

	items, err := New(srv.URL).ListNews(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.True(t, item.ID.Matches("5"))
	assert.Equal(t, "خبر", item.Title)
	assert.Equal(t, "وصف", item.Description)
	assert.Equal(t, "admin", item.Author)
	require.Len(t, item.NewsImages, 1)
	assert.Equal(t, "/x.jpg", item.NewsImages[0].Path)
}

func TestListNewsStatusError(t *testing.T) {
	srv := newBackend(t, http.StatusServiceUnavailable, `oops`)

	_, err := New(srv.URL).ListNews(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, srv.URL, se.URL)
}

func TestListNewsMalformedJSON(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `{"not": "a list"`)

	_, err := New(srv.URL).ListNews(context.Background())
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestListNewsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListNews(context.Background())
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestListNewsHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).ListNews(context.Background())
	assert.Error(t, err)
}

func TestGetNews(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `[{"id": 1, "title": "a"}, {"id": 2, "title": "b"}]`)
	c := New(srv.URL, WithUserAgent("test-agent"))

	item, err := c.GetNews(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "b", item.Title)

	_, err = c.GetNews(context.Background(), "3")
	assert.ErrorIs(t, err, ErrNotFound)
}
