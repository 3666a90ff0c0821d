package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ascww/newsportal/pkg/config"
	"github.com/ascww/newsportal/pkg/newsmeta"
)

// runPreview renders one page the way the server would. On a terminal only
// the computed tags are shown; piped output gets the full HTML.
func runPreview(cfg *config.Config, rw *newsmeta.Rewriter, rawURL string, out *os.File) error {
	page, err := url.Parse(rawURL)
	if err != nil || !page.IsAbs() {
		return fmt.Errorf("preview needs an absolute page URL, got %q", rawURL)
	}
	ctx := context.Background()

	if term.IsTerminal(int(out.Fd())) {
		tags, outcome, err := rw.Resolve(ctx, page)
		if err != nil {
			return err
		}
		return printTags(out, tags, outcome)
	}

	shell, err := rw.Rewrite(ctx, page, func(ctx context.Context) (*newsmeta.Shell, error) {
		return loadShell(ctx, cfg, page)
	})
	if err != nil {
		return err
	}
	_, err = out.Write(shell.Body)
	return err
}

func printTags(w io.Writer, tags newsmeta.Tags, outcome newsmeta.Outcome) error {
	_, err := fmt.Fprintf(w, "outcome:     %s\ntitle:       %s\ndescription: %s\nimage:       %s\nurl:         %s\n",
		outcome, tags.Title, tags.Description, tags.Image, tags.URL)
	return err
}

// loadShell fetches the shell the same way the Shell handler would serve it.
func loadShell(ctx context.Context, cfg *config.Config, page *url.URL) (*newsmeta.Shell, error) {
	if cfg.Shell.Origin == "" {
		body, err := os.ReadFile(cfg.ShellPath())
		if err != nil {
			return nil, fmt.Errorf("could not read shell: %w", err)
		}
		header := http.Header{}
		header.Set("Content-Type", "text/html; charset=utf-8")
		return &newsmeta.Shell{Status: http.StatusOK, Header: header, Body: body}, nil
	}

	target := strings.TrimRight(cfg.Shell.Origin, "/") + page.RequestURI()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error building shell request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching shell from %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading shell: %w", err)
	}
	return &newsmeta.Shell{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
