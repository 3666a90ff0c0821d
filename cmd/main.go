package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ascww/newsportal/handlers"
	"github.com/ascww/newsportal/pkg/config"
	"github.com/ascww/newsportal/pkg/newsapi"
	"github.com/ascww/newsportal/pkg/newsmeta"
)

func main() {
	parser := argparse.NewParser("newsportal", "Edge server for the news portal: social meta tags for crawlers")

	configPath := parser.String("c", "config", &argparse.Options{
		Required: false,
		Default:  os.Getenv("CONFIG"),
		Help:     "Path to a YAML config file",
	})
	port := parser.String("p", "port", &argparse.Options{
		Required: false,
		Help:     "Port the webserver will listen on (overrides config and PORT)",
	})
	staticDir := parser.String("s", "static", &argparse.Options{
		Required: false,
		Help:     "Directory holding the SPA build (index.html and assets)",
	})
	prefork := parser.Flag("P", "prefork", &argparse.Options{
		Required: false,
		Help:     "Spawn multiple server processes",
	})
	preview := parser.String("", "preview", &argparse.Options{
		Required: false,
		Help:     "Print the rewritten shell for a page URL, e.g. https://example.org/news/5, and exit",
	})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if *prefork {
		cfg.Prefork = true
	}
	log.SetLevel(cfg.Level())

	metrics := handlers.NewMetrics()
	rw := newRewriter(cfg, metrics)

	if *preview != "" {
		if err := runPreview(cfg, rw, *preview, os.Stdout); err != nil {
			log.Fatalf("preview failed: %v", err)
		}
		return
	}

	app := handlers.NewServer(cfg, rw, metrics)
	log.Infof("serving %s with news from %s (injection: %s)", cfg.StaticDir, cfg.Backend.NewsURL, cfg.Injection)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func newRewriter(cfg *config.Config, obs newsmeta.Observer) *newsmeta.Rewriter {
	client := newsapi.New(cfg.Backend.NewsURL,
		newsapi.WithTimeout(cfg.Backend.Timeout),
		newsapi.WithUserAgent(cfg.Backend.UserAgent),
	)
	return newsmeta.New(client, newsmeta.Options{
		Defaults:     cfg.MetaDefaults(),
		Site:         cfg.MetaSite(),
		ImageBaseURL: cfg.Backend.ImageBaseURL,
		Injector:     cfg.Injector(),
		Observer:     obs,
	})
}
