//go:build js && wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"syscall/js"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ascww/newsportal/pkg/config"
	"github.com/ascww/newsportal/pkg/newsapi"
	"github.com/ascww/newsportal/pkg/newsmeta"
)

var rewriterInstance *newsmeta.Rewriter

func initRewriter(env js.Value) (*newsmeta.Rewriter, error) {
	if rewriterInstance != nil {
		return rewriterInstance, nil
	}

	cfg := config.Default()
	cfg.Backend.NewsURL = getEnvVar(env, "NEWS_API_URL", cfg.Backend.NewsURL)
	cfg.Backend.ImageBaseURL = getEnvVar(env, "NEWS_IMAGE_BASE_URL", cfg.Backend.ImageBaseURL)
	cfg.Backend.UserAgent = getEnvVar(env, "USER_AGENT", cfg.Backend.UserAgent)
	cfg.Injection = getEnvVar(env, "INJECTION_MODE", cfg.Injection)
	cfg.LogLevel = getEnvVar(env, "LOG_LEVEL", cfg.LogLevel)
	if raw := getEnvVar(env, "BACKEND_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q: %w", raw, err)
		}
		cfg.Backend.Timeout = d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Level())

	client := newsapi.New(cfg.Backend.NewsURL,
		newsapi.WithTimeout(cfg.Backend.Timeout),
		newsapi.WithUserAgent(cfg.Backend.UserAgent),
	)
	rewriterInstance = newsmeta.New(client, newsmeta.Options{
		Defaults:     cfg.MetaDefaults(),
		Site:         cfg.MetaSite(),
		ImageBaseURL: cfg.Backend.ImageBaseURL,
		Injector:     cfg.Injector(),
	})
	return rewriterInstance, nil
}

// edgeRequest is one invocation of goNewsMeta. next is set once
// context.next() has resolved; the host must not be asked for it again.
type edgeRequest struct {
	request js.Value
	edgeCtx js.Value
	env     js.Value
	next    js.Value
}

// fallback is the untouched response of the next stage.
func (r *edgeRequest) fallback() js.Value {
	if !r.next.IsUndefined() {
		return r.next
	}
	return r.edgeCtx.Call("next")
}

func (r *edgeRequest) handle() (js.Value, error) {
	rw, err := initRewriter(r.env)
	if err != nil {
		log.Errorf("could not initialise rewriter: %v", err)
		return r.fallback(), nil
	}

	page, err := url.Parse(r.request.Get("url").String())
	if err != nil {
		log.Errorf("could not parse request URL: %v", err)
		return r.fallback(), nil
	}

	var raw *newsmeta.Shell
	out, err := rw.Rewrite(context.Background(), page, func(context.Context) (*newsmeta.Shell, error) {
		resp, err := await(r.edgeCtx.Call("next"))
		if err != nil {
			return nil, err
		}
		r.next = resp

		// read a clone so resp can still be returned as is
		buf, err := await(resp.Call("clone").Call("arrayBuffer"))
		if err != nil {
			return nil, err
		}
		raw = &newsmeta.Shell{
			Status: resp.Get("status").Int(),
			Header: jsHeaders(resp.Get("headers")),
			Body:   bytesFromJS(buf),
		}
		return raw, nil
	})
	if err != nil {
		return js.Value{}, err
	}
	if out == raw {
		return r.next, nil
	}
	return newResponse(out.Body, r.next), nil
}

// newResponse mirrors `new Response(body, original)` without the stale
// Content-Length of the original.
func newResponse(body []byte, original js.Value) js.Value {
	headers := js.Global().Get("Headers").New(original.Get("headers"))
	headers.Call("delete", "content-length")

	opts := js.Global().Get("Object").New()
	opts.Set("status", original.Get("status"))
	opts.Set("statusText", original.Get("statusText"))
	opts.Set("headers", headers)

	u8 := js.Global().Get("Uint8Array").New(len(body))
	js.CopyBytesToJS(u8, body)
	return js.Global().Get("Response").New(u8, opts)
}

// await blocks the calling goroutine until the promise settles.
func await(p js.Value) (js.Value, error) {
	if p.Type() != js.TypeObject || p.Get("then").Type() != js.TypeFunction {
		return p, nil
	}

	var (
		result  js.Value
		failure error
		done    = make(chan struct{})
	)
	onResolve := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) > 0 {
			result = args[0]
		}
		close(done)
		return nil
	})
	onReject := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		failure = errors.New("promise rejected")
		if len(args) > 0 {
			failure = fmt.Errorf("promise rejected: %s", args[0].Call("toString").String())
		}
		close(done)
		return nil
	})
	defer onResolve.Release()
	defer onReject.Release()

	p.Call("then", onResolve, onReject)
	<-done
	return result, failure
}

func jsHeaders(h js.Value) http.Header {
	header := http.Header{}
	visit := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		header.Add(args[1].String(), args[0].String())
		return nil
	})
	defer visit.Release()
	h.Call("forEach", visit)
	return header
}

func bytesFromJS(buf js.Value) []byte {
	u8 := js.Global().Get("Uint8Array").New(buf)
	body := make([]byte, u8.Get("length").Int())
	js.CopyBytesToGo(body, u8)
	return body
}

func getEnvVar(env js.Value, key, fallback string) string {
	if env.IsUndefined() || env.IsNull() {
		return fallback
	}
	if v := env.Get(key); v.Type() == js.TypeString && v.String() != "" {
		return v.String()
	}
	return fallback
}
