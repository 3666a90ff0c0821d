//go:build !js

package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ascww/newsportal/pkg/newsmeta"
)

// NewsMeta is the middleware for /news/:id. The rest of the chain (the
// shell handler) is its next stage; the response it leaves behind is
// patched in place.
func NewsMeta(rw *newsmeta.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := requestURL(c)
		if err != nil {
			log.Errorf("newsmeta: %v", err)
			return c.Next()
		}

		out, err := rw.Rewrite(c.UserContext(), page, func(context.Context) (*newsmeta.Shell, error) {
			if err := c.Next(); err != nil {
				return nil, err
			}
			return snapshot(c), nil
		})
		if err != nil {
			return err
		}

		c.Status(out.Status)
		c.Response().SetBody(out.Body)
		return nil
	}
}

// snapshot copies the response produced so far by the chain.
func snapshot(c *fiber.Ctx) *newsmeta.Shell {
	resp := c.Response()
	header := make(http.Header)
	resp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return &newsmeta.Shell{
		Status: resp.StatusCode(),
		Header: header,
		Body:   append([]byte(nil), resp.Body()...),
	}
}
