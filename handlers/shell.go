//go:build !js

package handlers

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/proxy"

	"github.com/ascww/newsportal/pkg/config"
)

// Shell serves the SPA's HTML shell for every client-side route. With an
// origin configured the shell is proxied from it, otherwise it is read from
// the static directory on each request so redeploys are picked up.
func Shell(cfg *config.Config) fiber.Handler {
	if cfg.Shell.Origin != "" {
		origin := strings.TrimRight(cfg.Shell.Origin, "/")
		return func(c *fiber.Ctx) error {
			// the rewriter cannot patch a compressed shell
			c.Request().Header.Del(fiber.HeaderAcceptEncoding)
			if err := proxy.Do(c, origin+c.OriginalURL()); err != nil {
				log.Errorf("shell: failed to reach origin %s: %v", origin, err)
				return fiber.NewError(fiber.StatusBadGateway, "origin unavailable")
			}
			return nil
		}
	}

	path := cfg.ShellPath()
	return func(c *fiber.Ctx) error {
		page, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("shell: could not read %s: %v", path, err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "shell unavailable")
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Type("html", "utf-8")
		return c.Send(page)
	}
}
