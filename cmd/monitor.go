package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/scienceol/powerwatch/internal/config"
	"github.com/scienceol/powerwatch/internal/logging"
	"github.com/scienceol/powerwatch/internal/metrics"
	"github.com/scienceol/powerwatch/internal/platform"
	"github.com/scienceol/powerwatch/internal/power"
	"github.com/scienceol/powerwatch/internal/relay"
	"github.com/scienceol/powerwatch/internal/ui"
	"github.com/scienceol/powerwatch/internal/updater"
)

const shutdownGrace = 5 * time.Second

var allEvents = []power.EventName{
	power.EventSuspend,
	power.EventResume,
	power.EventShutdown,
	power.EventLockScreen,
	power.EventUnlockScreen,
	power.EventOnAC,
	power.EventOnBattery,
}

var (
	flagEvents          []string
	flagStrategy        string
	flagRelayListen     string
	flagMonitorToken    string
	flagMetricsListen   string
	flagPreventShutdown bool
)

func init() {
	monitorCmd.Flags().StringSliceVar(&flagEvents, "events", nil, "Events to print (default: all)")
	monitorCmd.Flags().StringVar(&flagStrategy, "strategy", "auto", "Shutdown coordination: auto, none, relay, interest")
	monitorCmd.Flags().StringVar(&flagRelayListen, "relay-listen", "", "Address for the relay endpoint (default 127.0.0.1:7071)")
	monitorCmd.Flags().StringVar(&flagMonitorToken, "relay-token", "", "Token relay senders must present")
	monitorCmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "Address for Prometheus metrics (disabled when empty)")
	monitorCmd.Flags().BoolVar(&flagPreventShutdown, "prevent-shutdown", false, "Keep the shutdown delay lock held after a shutdown event (Linux)")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print host power events as they happen",
	Long: `Subscribes to host power events and prints them until interrupted.

The relay endpoint accepts end-session queries from "powerwatch relay send";
with the relay strategy (the default on Windows) each accepted query becomes
a shutdown event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctx, cfg, err := setup(ctx, config.Flags{
			RelayListen:   flagRelayListen,
			RelayToken:    flagMonitorToken,
			MetricsListen: flagMetricsListen,
		})
		if err != nil {
			return err
		}
		strategy, err := power.ParseStrategy(flagStrategy)
		if err != nil {
			return err
		}
		names, err := parseEvents(flagEvents)
		if err != nil {
			return err
		}

		ui.Banner(version)
		if info := updater.CheckForUpdate(ctx, cfg.UpdateURL, version); info != nil {
			ui.UpdateNotice(version, info.Latest, info.DownloadURL)
		}
		return runMonitor(ctx, cfg, strategy, names)
	},
}

func runMonitor(ctx context.Context, cfg *config.Config, strategy power.ShutdownStrategy, names []power.EventName) error {
	log := logging.FromContext(logging.WithComponent(ctx, "monitor"))

	reg := metrics.New()
	hub := relay.NewHub(ctx, relay.HubOptions{Token: cfg.RelayToken, Metrics: reg})
	ready := power.NewReadySignal()

	m := power.New(ctx, power.Options{
		Ready:    ready,
		Factory:  platform.NewSource,
		Idle:     platform.NewIdleQuerier(ctx),
		Relay:    hub,
		Strategy: strategy,
		Metrics:  reg,
	})

	for _, name := range names {
		m.On(name, printEvent)
	}

	fmt.Fprintln(os.Stderr)
	ui.KeyValue("Events", joinNames(names))
	ui.KeyValue("Strategy", strategy.String())

	var servers []*http.Server
	if cfg.RelayListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/relay", hub)
		servers = append(servers, &http.Server{Addr: cfg.RelayListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
		ui.KeyValue("Relay", "ws://"+cfg.RelayListen+"/relay")
	}
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", reg.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
		ui.KeyValue("Metrics", "http://"+cfg.MetricsListen+"/metrics")
	}
	ui.Separator()

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ready.Fire()
		select {
		case <-m.Active():
			ui.Success("Watching power events")
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr)
		ui.Warn("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		var errs error
		for _, srv := range servers {
			errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
		}
		errs = multierr.Append(errs, hub.Close())
		errs = multierr.Append(errs, m.Close())
		if errs != nil {
			log.Error().Err(errs).Msg("shutdown incomplete")
		}
		return errs
	})

	return g.Wait()
}

func printEvent(e *power.Event) {
	if e.Name == power.EventShutdown && flagPreventShutdown {
		e.PreventDefault()
	}
	detail := describeArgs(e.Args)
	if e.DefaultPrevented() {
		detail = strings.TrimSpace(detail + " prevented")
	}
	ui.Event(time.Now(), string(e.Name), detail)
}

func describeArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case power.RelayMessage:
			s := "from " + v.Sender
			if v.Reason != "" {
				s += " (" + v.Reason + ")"
			}
			parts = append(parts, s)
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " ")
}

func parseEvents(raw []string) ([]power.EventName, error) {
	if len(raw) == 0 {
		return allEvents, nil
	}
	names := make([]power.EventName, 0, len(raw))
	for _, r := range raw {
		name := power.EventName(strings.TrimSpace(r))
		if !knownEvent(name) {
			return nil, fmt.Errorf("unknown event %q", r)
		}
		names = append(names, name)
	}
	return names, nil
}

func knownEvent(name power.EventName) bool {
	for _, n := range allEvents {
		if n == name {
			return true
		}
	}
	return false
}

func joinNames(names []power.EventName) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}
