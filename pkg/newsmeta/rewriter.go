// Package newsmeta injects Open Graph and Twitter tags for news detail pages
// into the HTML shell of the portal, for crawlers that do not run scripts.
//
// The package is host-agnostic: the fiber server and the WASM edge worker
// both drive Rewriter.Rewrite with their own notion of the next stage.
package newsmeta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ascww/newsportal/pkg/newsapi"
)

// Outcome classifies how a request was served.
type Outcome string

const (
	OutcomeMatched     Outcome = "matched"     // item found, tags derived from it
	OutcomeDefault     Outcome = "default"     // no item with that id
	OutcomeUnavailable Outcome = "unavailable" // backend answered non-2xx
	OutcomeDegraded    Outcome = "degraded"    // shell served unmodified
)

// ErrEncodedShell is returned by Patch for a compressed shell body.
var ErrEncodedShell = errors.New("shell body is content-encoded")

// Source lists the news items a page id is looked up in.
type Source interface {
	ListNews(ctx context.Context) ([]newsapi.NewsItem, error)
}

// Observer is notified about backend fetches and request outcomes.
type Observer interface {
	ObserveFetch(d time.Duration, err error)
	ObserveOutcome(o Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(time.Duration, error) {}
func (nopObserver) ObserveOutcome(Outcome)            {}

// Options configure a Rewriter. They are built once at startup.
type Options struct {
	Defaults     Defaults
	Site         Site
	ImageBaseURL string
	Injector     Injector
	Observer     Observer
}

// Shell is the next stage's response: normally the SPA's index.html.
type Shell struct {
	Status int
	Header http.Header
	Body   []byte
}

// NextFunc produces the next stage's response.
type NextFunc func(ctx context.Context) (*Shell, error)

// Rewriter computes meta tags for news pages and patches them into the
// shell. It holds no per-request state and is safe for concurrent use.
type Rewriter struct {
	source Source
	opts   Options
}

// New creates a Rewriter reading items from source.
func New(source Source, opts Options) *Rewriter {
	if opts.Injector == nil {
		opts.Injector = TextInjector{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Rewriter{source: source, opts: opts}
}

// Resolve fetches the news list and computes the tags for page. A non-2xx
// backend answer or an unknown id yields the defaults; any other failure is
// returned and the caller must not patch the page.
func (r *Rewriter) Resolve(ctx context.Context, page *url.URL) (Tags, Outcome, error) {
	id := PageID(page)

	start := time.Now()
	items, err := r.source.ListNews(ctx)
	r.opts.Observer.ObserveFetch(time.Since(start), err)

	var statusErr *newsapi.StatusError
	switch {
	case errors.As(err, &statusErr):
		log.Warnf("newsmeta: %v, using defaults for %s", err, page.Path)
		return ComputeTags(nil, r.opts, page), OutcomeUnavailable, nil
	case err != nil:
		return Tags{}, OutcomeDegraded, err
	}

	item := newsapi.FindByID(items, id)
	if item == nil {
		log.Debugf("newsmeta: no news item %q, using defaults", id)
		return ComputeTags(nil, r.opts, page), OutcomeDefault, nil
	}
	return ComputeTags(item, r.opts, page), OutcomeMatched, nil
}

// Rewrite serves page through next with meta tags injected. Every failure
// in resolving or patching falls back to the unmodified next response; an
// error is returned only when next itself fails. next runs at most once,
// and an unmodified response is the *Shell it returned.
func (r *Rewriter) Rewrite(ctx context.Context, page *url.URL, next NextFunc) (*Shell, error) {
	var (
		shell   *Shell
		nextErr error
		called  bool
	)
	delegate := func() (*Shell, error) {
		if !called {
			called = true
			shell, nextErr = next(ctx)
		}
		return shell, nextErr
	}

	out, outcome, err := r.enhance(ctx, page, delegate)
	if err == nil {
		r.opts.Observer.ObserveOutcome(outcome)
		return out, nil
	}
	if nextErr != nil {
		return nil, nextErr
	}
	if called && shell == nil {
		return nil, fmt.Errorf("next stage failed: %w", err)
	}

	log.Errorf("newsmeta: serving %s unmodified: %v", page.Path, err)
	r.opts.Observer.ObserveOutcome(OutcomeDegraded)
	return delegate()
}

func (r *Rewriter) enhance(ctx context.Context, page *url.URL, delegate func() (*Shell, error)) (out *Shell, outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	tags, outcome, err := r.Resolve(ctx, page)
	if err != nil {
		return nil, outcome, err
	}
	shell, err := delegate()
	if err != nil {
		return nil, outcome, err
	}
	out, err = r.Patch(shell, tags)
	return out, outcome, err
}

// Patch returns a copy of shell with tags injected into its body. Status
// and headers are kept; Content-Length is dropped since the body changes.
func (r *Rewriter) Patch(shell *Shell, tags Tags) (*Shell, error) {
	if shell == nil {
		return nil, errors.New("no shell to patch")
	}
	if enc := shell.Header.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "identity") {
		return nil, fmt.Errorf("%w: %s", ErrEncodedShell, enc)
	}

	body, err := r.opts.Injector.Inject(shell.Body, tags.Title, Block(tags, r.opts.Site))
	if err != nil {
		return nil, err
	}

	header := shell.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Content-Length")
	return &Shell{Status: shell.Status, Header: header, Body: body}, nil
}

// PageID is the last segment of the page's escaped path.
func PageID(page *url.URL) string {
	p := page.EscapedPath()
	return p[strings.LastIndex(p, "/")+1:]
}
