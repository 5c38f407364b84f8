package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"futures-monitor/internal/core"
	"futures-monitor/internal/dashboard"
	"futures-monitor/internal/engine"
	"futures-monitor/internal/exchange/binance"
	"futures-monitor/internal/httpapi"
	"futures-monitor/internal/logging"
	"futures-monitor/internal/metrics"
	"futures-monitor/internal/present"
	"futures-monitor/internal/render"
)

var log = logrus.WithField("module", "main")

const streamRetryDelay = 30 * time.Second

func runWatch(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	tui := useDashboard(cfg.Display.Mode, out)

	// The dashboard owns the terminal, so logs go to the file only.
	var console io.Writer = os.Stderr
	if tui {
		console = nil
	}
	closer, err := logging.Init(cfg.Log, console)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !cfg.Exchange.CredentialsReady() {
		if err := promptCredentials(credentialInput, cmd.ErrOrStderr(), &cfg.Exchange); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loc := present.LocaleFor(cfg.Display.Locale)
	var (
		display engine.Sink
		dash    *dashboard.Dashboard
		printer *render.Printer
	)
	if tui {
		dash = dashboard.New(loc, cfg.Refresh.PageSize)
		display = dash
	} else {
		printer = render.NewPrinter(out, loc, cfg.Refresh.PageSize)
		display = printer
	}

	if !cfg.Exchange.CredentialsReady() {
		log.Warn("credentials missing, staying idle")
		if tui {
			return dash.Run(ctx, true, cancel)
		}
		printer.Idle()
		return core.ErrMissingCredentials
	}

	client, err := binance.NewClient(cfg.Exchange, cfg.Stream.WSBaseURL)
	if err != nil {
		return err
	}
	session := uuid.NewString()
	log.WithFields(logrus.Fields{
		"session":  session,
		"api_key":  core.MaskKey(cfg.Exchange.APIKey),
		"key_type": cfg.Exchange.KeyType,
		"interval": cfg.Interval().String(),
	}).Info("starting monitor")

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	collector := metrics.NewCollector()
	client.SetObserver(collector)

	runner := &engine.Runner{
		Source:   client,
		Locale:   loc,
		Location: location,
		Interval: cfg.Interval(),
		Observer: collector,
	}
	sinks := []engine.Sink{display}
	if cfg.HTTP.Listen != "" {
		server := httpapi.NewServer(collector.Handler(), runner.State)
		server.Session = session
		sinks = append(sinks, server)
		go func() {
			if err := server.ListenAndServe(ctx, cfg.HTTP.Listen); err != nil {
				log.WithError(err).Error("status server stopped")
			}
		}()
	}
	runner.Sink = engine.MultiSink(sinks...)

	if cfg.Stream.Enabled {
		nudge := make(chan struct{}, 1)
		runner.Nudge = nudge
		go watchUserStream(ctx, client, time.Duration(cfg.Stream.KeepaliveMin)*time.Minute, nudge)
	}

	if !tui {
		err := runner.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()
	if err := dash.Run(ctx, false, cancel); err != nil {
		return err
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchUserStream keeps a user data stream open and forwards its nudges.
// Stream failures never stop polling; the stream is reopened after a delay.
func watchUserStream(ctx context.Context, client *binance.Client, keepalive time.Duration, nudge chan<- struct{}) {
	for ctx.Err() == nil {
		err := streamOnce(ctx, client, keepalive, nudge)
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("user stream closed, reopening later")
		select {
		case <-ctx.Done():
			return
		case <-time.After(streamRetryDelay):
		}
	}
}

func streamOnce(ctx context.Context, client *binance.Client, keepalive time.Duration, nudge chan<- struct{}) error {
	stream, err := client.NewUserStream(ctx, keepalive)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stream.Close(closeCtx); err != nil {
			log.WithError(err).Warn("close user stream failed")
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-stream.Notify(ctx, nudge):
		return err
	}
}
