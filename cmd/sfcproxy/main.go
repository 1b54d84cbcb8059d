// sfcproxy is a service-function-chain proxy that decapsulates
// VXLAN-GPE/NSH-encapsulated traffic, forwards it to a service function
// over plain Ethernet, and re-encapsulates the service function's
// response for the return trip.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nshsfc/sfcproxy/internal/config"
	"github.com/nshsfc/sfcproxy/internal/metrics"
	"github.com/nshsfc/sfcproxy/internal/pipeline"
	"github.com/nshsfc/sfcproxy/internal/rawsock"
	"github.com/nshsfc/sfcproxy/internal/session"
	appversion "github.com/nshsfc/sfcproxy/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		encapIf      string
		unencapInIf  string
		unencapOutIf string
		configPath   string
	)

	cmd := &cobra.Command{
		Use:   "sfcproxy",
		Short: "Service-function-chain VXLAN-GPE/NSH proxy",
		Long:  appversion.Full("sfcproxy"),
		RunE: func(_ *cobra.Command, _ []string) error {
			return runProxy(encapIf, unencapInIf, unencapOutIf, configPath)
		},
	}

	cmd.Flags().StringVarP(&encapIf, "encap_if", "e", "", "interface for encapsulated VXLAN-GPE/NSH traffic (required)")
	cmd.Flags().StringVar(&unencapInIf, "unencap_in_if", "", "interface accepting de-encapsulated forward traffic from the service function (required)")
	cmd.Flags().StringVar(&unencapOutIf, "unencap_out_if", "", "interface for the service function's reply path (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file (YAML)")

	for _, name := range []string{"encap_if", "unencap_in_if", "unencap_out_if"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 1
		}
	}

	if err := cmd.Execute(); err != nil {
		return 1
	}

	return 0
}

func runProxy(encapIf, unencapInIf, unencapOutIf, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return err
	}

	logger := newLogger(cfg.Log)

	logger.Info("sfcproxy starting",
		slog.String("version", appversion.Version),
		slog.String("encap_if", encapIf),
		slog.String("unencap_in_if", unencapInIf),
		slog.String("unencap_out_if", unencapOutIf),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	encapSock, err := rawsock.Open(encapIf)
	if err != nil {
		return fmt.Errorf("open encap interface: %w", err)
	}
	defer closeSocket(encapSock, "encap", logger)

	unencapInSock, err := rawsock.Open(unencapInIf)
	if err != nil {
		return fmt.Errorf("open unencap-in interface: %w", err)
	}
	defer closeSocket(unencapInSock, "unencap_in", logger)

	unencapOutSock, err := rawsock.Open(unencapOutIf)
	if err != nil {
		return fmt.Errorf("open unencap-out interface: %w", err)
	}
	defer closeSocket(unencapOutSock, "unencap_out", logger)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	table := session.NewTable()

	decap := pipeline.NewDecap(encapSock, unencapInSock, unencapOutSock, table, collector, logger, cfg.Buffers.FrameSize)
	encap := pipeline.NewEncap(unencapInSock, encapSock, table, collector, logger, cfg.Buffers.FrameSize)
	reverseEncap := pipeline.NewReverseEncap(unencapOutSock, encapSock, table, collector, logger, cfg.Buffers.FrameSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return decap.Run(gCtx) })
	g.Go(func() error { return encap.Run(gCtx) })
	g.Go(func() error { return reverseEncap.Run(gCtx) })

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return shutdownMetricsServer(metricsSrv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sfcproxy stopped on error", slog.String("error", err.Error()))
		return fmt.Errorf("run proxy: %w", err)
	}

	logger.Info("sfcproxy stopped")
	return nil
}

func closeSocket(s rawsock.Socket, name string, logger *slog.Logger) {
	if err := s.Close(); err != nil {
		logger.Warn("failed to close socket", slog.String("interface", name), slog.String("error", err.Error()))
	}
}

func loadConfig(path string) (*config.Config, error) {
	// config.Load layers defaults, the file (when path is non-empty), and
	// SFCPROXY_* environment overrides.
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

const shutdownTimeout = 5 * time.Second

func shutdownMetricsServer(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}
