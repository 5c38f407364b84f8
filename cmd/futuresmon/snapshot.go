package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"futures-monitor/internal/config"
	"futures-monitor/internal/core"
	"futures-monitor/internal/engine"
	"futures-monitor/internal/exchange/binance"
	"futures-monitor/internal/logging"
	"futures-monitor/internal/present"
	"futures-monitor/internal/render"
)

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh once and print the result",
		Long: `Fetch the account summary, positions, open orders and recent trades once
and print them. Exits non-zero when the refresh fails.

Examples:
  futuresmon snapshot
  futuresmon snapshot --json --locale en`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, done, err := setupOneShot(cmd, opts)
			if err != nil {
				return err
			}
			defer done()
			location, err := cfg.Location()
			if err != nil {
				return err
			}
			loc := present.LocaleFor(cfg.Display.Locale)
			out := cmd.OutOrStdout()
			runner := &engine.Runner{
				Source:   client,
				Sink:     render.NewPrinter(out, loc, cfg.Refresh.PageSize),
				Locale:   loc,
				Location: location,
			}
			if !asJSON {
				return runner.RunOnce(cmd.Context())
			}
			snap, err := runner.Cycle(cmd.Context())
			if err != nil {
				return errors.New(present.FailureMessage(err, loc))
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the API key can read the futures account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, done, err := setupOneShot(cmd, opts)
			if err != nil {
				return err
			}
			defer done()
			loc := present.LocaleFor(cfg.Display.Locale)
			payload, err := client.AccountSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("request account: %w", err)
			}
			view, err := present.Account(payload, loc)
			if err != nil {
				return checkFailure(err)
			}
			creds := core.Credentials{APIKey: cfg.Exchange.APIKey, SecretKey: cfg.Exchange.APISecret}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n%s\n", creds.MaskedKey(), render.MetricsLine(view))
			return nil
		},
	}
}

// checkFailure adds a hint for the two rejections users can fix themselves.
func checkFailure(err error) error {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return fmt.Errorf("%w (check the key, its futures read permission and IP whitelist)", err)
	case errors.Is(err, core.ErrTimestamp):
		return fmt.Errorf("%w (sync the system clock or raise recv_window_ms)", err)
	}
	return err
}

// setupOneShot loads config, starts logging to stderr and builds the client.
// done releases the log file.
func setupOneShot(cmd *cobra.Command, opts *rootOptions) (config.Config, *binance.Client, func(), error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	closer, err := logging.Init(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	done := func() { _ = closer.Close() }
	if !cfg.Exchange.CredentialsReady() {
		if err := promptCredentials(credentialInput, cmd.ErrOrStderr(), &cfg.Exchange); err != nil {
			done()
			return config.Config{}, nil, nil, err
		}
	}
	client, err := binance.NewClient(cfg.Exchange, cfg.Stream.WSBaseURL)
	if err != nil {
		done()
		return config.Config{}, nil, nil, err
	}
	return cfg, client, done, nil
}
