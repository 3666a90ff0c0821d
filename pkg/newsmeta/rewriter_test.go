package newsmeta

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascww/newsportal/pkg/newsapi"
)

type fakeSource struct {
	items []newsapi.NewsItem
	err   error
	calls int
}

func (f *fakeSource) ListNews(context.Context) ([]newsapi.NewsItem, error) {
	f.calls++
	return f.items, f.err
}

type recordingObserver struct {
	mu       sync.Mutex
	fetches  int
	outcomes []Outcome
}

func (o *recordingObserver) ObserveFetch(time.Duration, error) {
	o.mu.Lock()
	o.fetches++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveOutcome(out Outcome) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, out)
	o.mu.Unlock()
}

type countingNext struct {
	calls int
	shell *Shell
	err   error
	last  *Shell
}

func (n *countingNext) next(context.Context) (*Shell, error) {
	n.calls++
	if n.err != nil {
		return nil, n.err
	}
	n.last = &Shell{
		Status: n.shell.Status,
		Header: n.shell.Header.Clone(),
		Body:   append([]byte(nil), n.shell.Body...),
	}
	return n.last, nil
}

func newNext() *countingNext {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", "999")
	h.Set("X-Origin", "shell")
	return &countingNext{shell: &Shell{Status: http.StatusOK, Header: h, Body: []byte(shellHTML)}}
}

func newRewriter(src Source, obs Observer) *Rewriter {
	opts := testOptions()
	opts.Observer = obs
	return New(src, opts)
}

func TestRewriteScenarioMatchedItem(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{{
		ID:          newsapi.NumericID(5),
		Title:       "خبر",
		Description: "...",
		NewsImages:  []newsapi.NewsImage{{Path: "/x.jpg"}},
	}}}
	obs := &recordingObserver{}
	next := newNext()

	out, err := newRewriter(src, obs).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.NoError(t, err)

	body := string(out.Body)
	assert.Contains(t, body, `<meta property="og:image" content="`+imageBase+`x.jpg" />`)
	assert.Contains(t, body, "<title>خبر</title>")
	assert.Equal(t, 1, strings.Count(body, "<title>"))
	assert.Equal(t, 1, strings.Count(body, "<!-- Dynamic Social Tags -->"))
	assert.Contains(t, body, "    </head>")

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "shell", out.Header.Get("X-Origin"))
	assert.Empty(t, out.Header.Get("Content-Length"))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, []Outcome{OutcomeMatched}, obs.outcomes)
	assert.Equal(t, 1, obs.fetches)
}

func TestRewriteBlockPrecedesHeadClose(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{{ID: newsapi.NumericID(1), Title: "t"}}}
	page := mustURL(t, "https://news.example/news/1")
	r := newRewriter(src, nil)

	out, err := r.Rewrite(context.Background(), page, newNext().next)
	require.NoError(t, err)

	tags, _, err := r.Resolve(context.Background(), page)
	require.NoError(t, err)
	assert.Contains(t, string(out.Body), Block(tags, testOptions().Site)+"</head>")
}

func TestRewriteScenarioUnknownID(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{}}
	obs := &recordingObserver{}
	page := mustURL(t, "https://news.example/news/99")

	r := newRewriter(src, obs)
	tags, outcome, err := r.Resolve(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDefault, outcome)
	assert.Equal(t, Tags{
		Title:       testDefaults.Title,
		Description: testDefaults.Description,
		Image:       "https://news.example/logo.png",
		URL:         "https://news.example/news/99",
	}, tags)

	out, err := r.Rewrite(context.Background(), page, newNext().next)
	require.NoError(t, err)
	assert.Contains(t, string(out.Body), "<title>"+testDefaults.Title+"</title>")
	assert.Contains(t, string(out.Body), `<meta property="og:url" content="https://news.example/news/99" />`)
}

func TestRewriteScenarioNetworkError(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: connection refused")}
	obs := &recordingObserver{}
	next := newNext()

	out, err := newRewriter(src, obs).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.NoError(t, err)

	assert.Equal(t, []byte(shellHTML), out.Body)
	assert.Equal(t, "999", out.Header.Get("Content-Length"))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, []Outcome{OutcomeDegraded}, obs.outcomes)
}

func TestRewriteScenarioNoImages(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{{ID: newsapi.NumericID(8), Title: "بدون صور"}}}

	tags, outcome, err := newRewriter(src, nil).Resolve(context.Background(), mustURL(t, "https://news.example/news/8"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	assert.Equal(t, "https://news.example/logo.png", tags.Image)
	assert.Equal(t, "بدون صور", tags.Title)
}

func TestRewriteBackendStatusUsesDefaults(t *testing.T) {
	src := &fakeSource{err: &newsapi.StatusError{URL: "https://backend", StatusCode: http.StatusBadGateway}}
	obs := &recordingObserver{}

	out, err := newRewriter(src, obs).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), newNext().next)
	require.NoError(t, err)

	assert.Contains(t, string(out.Body), "<title>"+testDefaults.Title+"</title>")
	assert.Equal(t, []Outcome{OutcomeUnavailable}, obs.outcomes)
}

func TestRewriteEncodedShellPassesThrough(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{{ID: newsapi.NumericID(5), Title: "خبر"}}}
	next := newNext()
	next.shell.Header.Set("Content-Encoding", "gzip")
	next.shell.Body = []byte{0x1f, 0x8b, 0x08}

	out, err := newRewriter(src, nil).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b, 0x08}, out.Body)
	assert.Same(t, next.last, out)
	assert.Equal(t, "gzip", out.Header.Get("Content-Encoding"))
	assert.Equal(t, 1, next.calls)
}

type panickingInjector struct{}

func (panickingInjector) Inject([]byte, string, string) ([]byte, error) {
	panic("boom")
}

func TestRewriteRecoversInjectorPanic(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{{ID: newsapi.NumericID(5), Title: "خبر"}}}
	opts := testOptions()
	opts.Injector = panickingInjector{}
	next := newNext()

	out, err := New(src, opts).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.NoError(t, err)
	assert.Equal(t, []byte(shellHTML), out.Body)
	assert.Same(t, next.last, out)
	assert.Equal(t, 1, next.calls)
}

func TestRewriteNextFailure(t *testing.T) {
	src := &fakeSource{items: []newsapi.NewsItem{}}
	next := newNext()
	next.err = errors.New("origin down")

	_, err := newRewriter(src, nil).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)

	src.err = errors.New("backend down")
	next.calls = 0
	_, err = newRewriter(src, nil).Rewrite(context.Background(), mustURL(t, "https://news.example/news/5"), next.next)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestPageID(t *testing.T) {
	assert.Equal(t, "5", PageID(mustURL(t, "https://x/news/5")))
	assert.Equal(t, "", PageID(mustURL(t, "https://x/news/")))
	assert.Equal(t, "%35", PageID(mustURL(t, "https://x/news/%35")))
	assert.Equal(t, "7", PageID(mustURL(t, "https://x/news/7?utm=1")))
}
