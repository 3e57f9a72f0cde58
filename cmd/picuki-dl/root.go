package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"picukidl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions holds the flags of the root command
type rootOptions struct {
	configFile string
	username   string
	images     bool
	videos     bool
	thumbnails bool
	all        bool
	verbose    bool

	outputDir  string
	concurrent int
	timeout    time.Duration
	maxRetries int
	cooldown   time.Duration
	rateLimit  int
	logFile    string
	noProgress bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "picuki-dl",
		Short: "Bulk download the media of a public Instagram profile",
		Long: `picuki-dl downloads the images, videos and video thumbnails of a public
Instagram profile through the Picuki viewer site.

Files are stored content addressed under <output>/<username>/<category>/,
so running the same download again only fetches what is missing.`,
		Example: `  # Download everything from a profile
  picuki-dl -u johndoe -a

  # Only images, into a specific directory
  picuki-dl -u johndoe -i -o ./media

  # Videos and thumbnails with more parallel downloads
  picuki-dl -u johndoe -v -t --concurrent 8`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unexpected arguments %q, pass the username with -u", args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				return cmd.Help()
			}
			return runDownload(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.picuki-dl.yaml or ~/.config/picuki-dl/config.yaml)")

	flags := cmd.Flags()
	flags.StringVarP(&opts.username, "username", "u", "", "profile username to download")
	flags.BoolVarP(&opts.images, "images", "i", false, "download images")
	flags.BoolVarP(&opts.videos, "videos", "v", false, "download videos")
	flags.BoolVarP(&opts.thumbnails, "thumbnails", "t", false, "download video thumbnails")
	flags.BoolVarP(&opts.all, "all", "a", false, "download all media types")
	flags.BoolVarP(&opts.verbose, "verbose", "V", false, "enable debug logging")

	flags.StringVarP(&opts.outputDir, "output", "o", "", "output directory (default: current directory)")
	flags.IntVar(&opts.concurrent, "concurrent", 0, "number of concurrent downloads (1-10)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "timeout for one download attempt")
	flags.IntVar(&opts.maxRetries, "max-retries", 0, "retries for transient download failures (default from config: 3)")
	flags.DurationVar(&opts.cooldown, "cooldown", 0, "pause between media items (default from config: 1s)")
	flags.IntVar(&opts.rateLimit, "rate-limit", 0, "page requests per minute")
	flags.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable progress bars")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError(err)
	})
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)
	cmd.SetVersionTemplate(`picuki-dl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)

	err := cmd.Execute()
	code := exitCode(err)
	if err != nil && err.Error() != "" {
		ui.PrintError(stderr, "Error", err)
	}

	var ee *exitError
	if errors.As(err, &ee) && ee.code == ExitUsage {
		fmt.Fprintln(stderr, "Run 'picuki-dl --help' for usage.")
	}
	return code
}
