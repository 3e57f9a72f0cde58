package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"picukidl/internal/downloader"
	"picukidl/pkg/config"
	"picukidl/pkg/logger"
	"picukidl/pkg/picuki"
	"picukidl/pkg/ratelimit"
	"picukidl/pkg/scraper"
	"picukidl/pkg/storage"
	"picukidl/pkg/ui"
)

// selection validates the username and media type flags.
func (o *rootOptions) selection() (string, scraper.Selection, error) {
	sel := scraper.Selection{Images: o.images, Videos: o.videos, Thumbnails: o.thumbnails}
	if o.all {
		sel = scraper.All()
	}

	if o.username == "" {
		if sel.Any() {
			return "", sel, usageError(fmt.Errorf("a username is required, pass it with -u"))
		}
		return "", sel, usageError(fmt.Errorf("nothing to do, pass -u and at least one of -i, -v, -t or -a"))
	}
	username, err := picuki.SanitizeUsername(o.username)
	if err != nil {
		return "", sel, usageError(err)
	}
	if !sel.Any() {
		return "", sel, usageError(fmt.Errorf("select at least one media type with -i, -v, -t or -a"))
	}
	return username, sel, nil
}

// flagOverrides collects explicitly set flags for config.MergeCommandLineFlags.
func (o *rootOptions) flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("output") {
		flags["output"] = o.outputDir
	}
	if changed("concurrent") {
		flags["concurrent"] = o.concurrent
	}
	if changed("timeout") {
		flags["timeout"] = o.timeout
	}
	if changed("max-retries") {
		flags["max-retries"] = o.maxRetries
	}
	if changed("cooldown") {
		flags["cooldown"] = o.cooldown
	}
	if changed("rate-limit") {
		flags["rate-limit"] = o.rateLimit
	}
	if changed("log-file") {
		flags["log-file"] = o.logFile
	}
	if o.verbose {
		flags["log-level"] = "debug"
	}
	return flags
}

func runDownload(cmd *cobra.Command, opts *rootOptions) error {
	username, sel, err := opts.selection()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("concurrent") && opts.concurrent < 1 {
		return usageError(fmt.Errorf("--concurrent must be at least 1, got %d", opts.concurrent))
	}
	cfg, err := config.Load(opts.configFile, opts.flagOverrides(cmd))
	if err != nil {
		return usageError(err)
	}

	log, err := logger.New(&cfg.Logging, opts.stderr)
	if err != nil {
		return usageError(err)
	}
	defer log.Close()
	log = log.WithField("version", version)

	interactive := isTerminal(opts.stdout)
	ui.SetColor(interactive)
	if interactive {
		ui.PrintBanner(opts.stdout)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := picuki.NewClient(picuki.ClientOptions{
		Timeout:   cfg.Source.PageTimeout,
		UserAgent: cfg.Source.UserAgent,
		Limiter:   ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, 1, nil),
	}, log)
	endpoints := picuki.NewEndpoints(cfg.Source.BaseURL)
	client.SetHeader("Referer", endpoints.Base()+"/")
	source := picuki.NewSource(client, picuki.NewHTMLParser(cfg.Source.BaseURL), endpoints, log)

	fetcher := downloader.NewHTTPDownloader(downloader.Options{
		Timeout:        cfg.Download.Timeout,
		UserAgent:      cfg.Download.UserAgent,
		RetryAttempts:  cfg.Download.RetryAttempts,
		RetryBaseDelay: cfg.Download.RetryBaseDelay,
	}, log)

	var storeOpts []storage.Option
	if !opts.noProgress && isTerminal(opts.stderr) {
		storeOpts = append(storeOpts, storage.WithProgress(ui.NewTransferTracker(opts.stderr)))
	}
	store := storage.NewManager(cfg.Output.BaseDirectory, fetcher, log, storeOpts...)
	log.WithField("output", store.Root()).Debug("Output directory")

	s, err := scraper.New(scraper.Config{
		Profiles:   source,
		Enumerator: source,
		Media:      source,
		Store:      store,
		Cooldown:   ratelimit.NewFixedDelay(cfg.RateLimit.Cooldown, nil),
		Workers:    cfg.Download.ConcurrentDownloads,
		Display:    ui.NewConsole(opts.stdout),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	report, err := s.Run(ctx, username, sel)
	if err != nil {
		switch exitCode(err) {
		case ExitNotFound:
			ui.PrintWarning(opts.stdout, fmt.Sprintf("Cannot find user @%s, check the username", username))
		case ExitInterrupted:
			ui.PrintWarning(opts.stdout, "Interrupted")
		}
		return err
	}

	if report.Failed > 0 || report.ItemsSkipped > 0 {
		ui.PrintWarning(opts.stdout, fmt.Sprintf("Finished with %d failed downloads and %d skipped items", report.Failed, report.ItemsSkipped))
	} else if report.MediaCount > 0 {
		ui.PrintSuccess(opts.stdout, fmt.Sprintf("Finished: %d downloaded, %d already present in %s", report.Completed, report.SkippedExists, store.Root()))
	}
	return nil
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
