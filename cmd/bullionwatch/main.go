// cmd/bullionwatch/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bullionwatch/bullionwatch/internal/browser"
	"github.com/bullionwatch/bullionwatch/internal/config"
	"github.com/bullionwatch/bullionwatch/internal/monitoring"
	"github.com/bullionwatch/bullionwatch/internal/scraper"
	"github.com/bullionwatch/bullionwatch/internal/server"
	"github.com/bullionwatch/bullionwatch/internal/store"
	"github.com/bullionwatch/bullionwatch/internal/utils"
)

var version = "0.2.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "scrape":
		err = runScrape(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "template":
		err = runTemplate(os.Args[2:])
	case "version":
		fmt.Printf("bullionwatch %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bullionwatch - gold sovereign price tracker

Usage:
  bullionwatch <command> [options]

Commands:
  serve      Start the API server
  scrape     Run a one-off scrape
  validate   Validate a configuration file
  template   Print a starter configuration
  version    Print version information
  help       Show this help

Options:
  -config <file>    Configuration file (default configs/gold.yaml)
  -vendor <name>    Vendor to scrape, or "all" (scrape only)
  -type <name>      Template type (template only)

Examples:
  bullionwatch serve -config configs/gold.yaml
  bullionwatch scrape -config configs/gold.yaml -vendor Chards
  bullionwatch template > configs/gold.yaml`)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "configs/gold.yaml", "configuration file")
	fs.Parse(args)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := browser.NewChromeClient(browserConfig(cfg))
	if err != nil {
		return err
	}
	defer client.Close()

	metrics := monitoring.NewMetrics()
	pipeline := scraper.NewPipeline(client, st, logger, metrics, cfg.Scrape)
	handler := server.New(st, pipeline, cfg.Vendors, cfg.Server, logger, metrics)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		// Scrape runs execute inside the request, so the write
		// timeout has to outlast a full run.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func runScrape(args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", "configs/gold.yaml", "configuration file")
	vendorName := fs.String("vendor", "all", "vendor to scrape, or \"all\"")
	fs.Parse(args)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	vendors := cfg.Vendors
	if *vendorName != "all" {
		vendors = nil
		for _, v := range cfg.Vendors {
			if v.Name == *vendorName {
				vendors = append(vendors, v)
			}
		}
		if len(vendors) == 0 {
			return fmt.Errorf("unknown vendor %q", *vendorName)
		}
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := browser.NewChromeClient(browserConfig(cfg))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := scraper.NewPipeline(client, st, logger, nil, cfg.Scrape)
	count, err := pipeline.Run(ctx, vendors)
	if err != nil {
		return err
	}
	fmt.Printf("stored %d records\n", count)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "configs/gold.yaml", "configuration file")
	fs.Parse(args)
	if fs.NArg() > 0 {
		*configPath = fs.Arg(0)
	}

	if _, err := config.LoadFromFile(*configPath); err != nil {
		return err
	}
	fmt.Printf("%s is valid\n", *configPath)
	return nil
}

func runTemplate(args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	templateType := fs.String("type", "gold", "template type")
	output := fs.String("output", "", "output file (default stdout)")
	fs.Parse(args)

	cfg := config.GenerateTemplate(*templateType)

	if *output == "" {
		return config.SaveToWriter(&cfg, os.Stdout)
	}
	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *output, err)
	}
	defer f.Close()
	return config.SaveToWriter(&cfg, f)
}

// browserConfig maps the YAML browser section onto the browser
// package's typed configuration.
func browserConfig(cfg *config.Config) *browser.Config {
	defaults := browser.DefaultConfig()
	return &browser.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: config.Duration(cfg.Browser.NavigationTimeout, defaults.NavigationTimeout),
		ConsentTimeout:    config.Duration(cfg.Browser.ConsentTimeout, defaults.ConsentTimeout),
		SettleDelay:       config.Duration(cfg.Browser.SettleDelay, defaults.SettleDelay),
		DisableImages:     cfg.Browser.DisableImages,
	}
}
