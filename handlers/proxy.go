//go:build !js

package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/proxy"
)

// ProxyAPI forwards /api/proxy/* to the backend API so the SPA can call it
// same-origin: /api/proxy/news?page=2 -> <target>/news?page=2.
func ProxyAPI(target string) fiber.Handler {
	base := strings.TrimRight(target, "/")

	return func(c *fiber.Ctx) error {
		backendURL, err := extractURL(base, c)
		if err != nil {
			log.Errorf("api proxy: %v", err)
			return fiber.NewError(fiber.StatusBadRequest, "invalid API path")
		}

		if err := proxy.Do(c, backendURL); err != nil {
			log.Errorf("api proxy: failed to reach %s: %v", backendURL, err)
			return fiber.NewError(fiber.StatusBadGateway, "backend unavailable")
		}
		c.Response().Header.Del(fiber.HeaderServer)
		return nil
	}
}

// extractURL rebuilds the backend URL for the wildcard part of the request,
// keeping its query string.
func extractURL(base string, c *fiber.Ctx) (string, error) {
	path := c.Params("*")
	if strings.Contains(path, "://") {
		return "", fmt.Errorf("refusing absolute URL in path '%s'", path)
	}

	target, err := url.Parse(base + "/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("error parsing backend URL for '%s': %w", path, err)
	}
	target.RawQuery = string(c.Request().URI().QueryString())
	return target.String(), nil
}

// requestURL is the absolute URL of the current request, as seen by the
// client (X-Forwarded-Proto and X-Forwarded-Host are honoured).
func requestURL(c *fiber.Ctx) (*url.URL, error) {
	raw := c.BaseURL() + c.OriginalURL()
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("error parsing request URL '%s': %w", raw, err)
	}
	return u, nil
}
