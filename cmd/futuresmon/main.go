package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"futures-monitor/internal/config"
)

type rootOptions struct {
	configPath string
	envFile    string
	interval   int64
	pageSize   int
	mode       string
	locale     string
	timezone   string
	listen     string
	stream     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(&rootOptions{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "futuresmon",
		Short: "Read-only dashboard for a Binance USDⓈ-M futures account",
		Long: `futuresmon polls a Binance USDⓈ-M futures account and shows the account
summary, open positions, open orders and recent trades. It never places or
cancels orders.

Examples:
  futuresmon                         # interactive dashboard
  futuresmon watch --mode plain      # print every refresh to stdout
  futuresmon snapshot --json         # one refresh as JSON
  futuresmon check                   # verify the API key`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "config.yaml", "config yaml path (optional)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with BINANCE_API_KEY and BINANCE_API_SECRET")
	flags.Int64Var(&opts.interval, "interval", 0, "refresh interval in seconds (10-300)")
	flags.IntVar(&opts.pageSize, "page-size", 0, "rows per table page")
	flags.StringVar(&opts.mode, "mode", "", "display mode: auto, tui or plain")
	flags.StringVar(&opts.locale, "locale", "", "display language tag, e.g. zh-CN or en")
	flags.StringVar(&opts.timezone, "timezone", "", "IANA timezone for timestamps, or Local")
	flags.StringVar(&opts.listen, "listen", "", "host:port for the status and metrics server")
	flags.BoolVar(&opts.stream, "stream", false, "refresh early on user data stream events")

	root.AddCommand(
		&cobra.Command{
			Use:   "watch",
			Short: "Refresh the dashboard until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWatch(cmd, opts)
			},
		},
		newSnapshotCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

// loadConfig reads the config file and dotenv file, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	missingOK := !cmd.Flags().Changed("config")
	cfg, err := config.LoadOrDefault(opts.configPath, missingOK)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return config.Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Refresh.IntervalSec = opts.interval
	}
	if flags.Changed("page-size") {
		cfg.Refresh.PageSize = opts.pageSize
	}
	if flags.Changed("mode") {
		cfg.Display.Mode = config.DisplayMode(strings.ToLower(strings.TrimSpace(opts.mode)))
	}
	if flags.Changed("locale") {
		cfg.Display.Locale = opts.locale
	}
	if flags.Changed("timezone") {
		cfg.Display.Timezone = opts.timezone
	}
	if flags.Changed("listen") {
		cfg.HTTP.Listen = opts.listen
	}
	if flags.Changed("stream") {
		cfg.Stream.Enabled = opts.stream
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// useDashboard decides between the interactive view and plain output.
func useDashboard(mode config.DisplayMode, out io.Writer) bool {
	switch mode {
	case config.DisplayTUI:
		return true
	case config.DisplayPlain:
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
