package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"intentrelay/internal/classify"
	"intentrelay/internal/config"
	"intentrelay/internal/generate"
	"intentrelay/internal/router"
	"intentrelay/internal/schema"
	"intentrelay/internal/server"
)

const serveUsage = `Usage:
  intentrelay serve --config <path> [--port <port>]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if cfgPath == "" {
		return errors.New("serve command requires --config <path>")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	client, err := generate.NewClient(generate.Config{
		APIKey:          cfg.Backend.APIKey,
		BaseURL:         cfg.Backend.BaseURL,
		Model:           cfg.Backend.Model,
		ClassifierModel: cfg.Backend.ClassifierModel,
		MaxOutputTokens: cfg.Backend.MaxOutputTokens,
	})
	if err != nil {
		return fmt.Errorf("initialise backend client: %w", err)
	}

	registry := schema.DefaultRegistry()

	classifier, err := classify.New(client, registry)
	if err != nil {
		return fmt.Errorf("initialise classifier: %w", err)
	}

	rt, err := router.New(classifier, registry, router.NewBackendGenerator(client))
	if err != nil {
		return fmt.Errorf("initialise router: %w", err)
	}

	srv, err := server.New(cfg, rt)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
