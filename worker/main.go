//go:build js && wasm

// Command worker is the news meta rewriter compiled to WebAssembly for a
// JavaScript edge runtime. The host's edge function delegates to it:
//
//	export default (request, context) => goNewsMeta(request, context, Netlify.env.toObject());
package main

import (
	"fmt"
	"syscall/js"

	"github.com/gofiber/fiber/v2/log"
)

func main() {
	log.Info("newsmeta worker loaded")

	js.Global().Set("goNewsMeta", js.FuncOf(fetchHandler))

	// Keep the program running
	select {}
}

// fetchHandler returns a Promise for the response. Rewriter failures never
// reject it: the worst case is the untouched context.next() response.
func fetchHandler(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.Global().Get("Promise").Call("reject", js.ValueOf("expected arguments: request, context[, env]"))
	}

	request := args[0]
	edgeCtx := args[1]
	env := js.Undefined()
	if len(args) > 2 {
		env = args[2]
	}

	return js.Global().Get("Promise").New(js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]

		req := &edgeRequest{request: request, edgeCtx: edgeCtx, env: env}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("edge function panic: %v", r)
					resolve.Invoke(req.fallback())
				}
			}()

			response, err := req.handle()
			if err != nil {
				reject.Invoke(js.ValueOf(fmt.Sprintf("edge function error: %v", err)))
				return
			}
			resolve.Invoke(response)
		}()

		return nil
	}))
}
