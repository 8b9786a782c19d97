// Command ftp-receive accepts a connection and receives one file.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/iLukSbr/reliable-udp-ftp/internal/config"
	"github.com/iLukSbr/reliable-udp-ftp/internal/logging"
	"github.com/iLukSbr/reliable-udp-ftp/internal/metrics"
	"github.com/iLukSbr/reliable-udp-ftp/internal/receiver"
	"github.com/iLukSbr/reliable-udp-ftp/internal/session"
)

func main() {
	opts := config.DefaultReceiverOptions()
	var logLevel string

	cmd := &cobra.Command{
		Use:   "ftp-receive",
		Short: "Accept one connection and receive a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLevel(logLevel)
			if err := config.ValidateReceiver(opts); err != nil {
				return err
			}
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Host, "host", opts.Host, "address to bind")
	flags.IntVar(&opts.Port, "port", opts.Port, "port to bind")
	flags.StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory to write received files into")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on (empty disables)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts config.ReceiverOptions) error {
	sess, err := session.Bind(opts.Host, opts.Port)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	defer sess.Close()

	log := logging.For("ftp-receive", "")
	log.WithField("addr", sess.Endpoint().LocalAddr().String()).Info("waiting for connection")

	if err := sess.Accept(); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	m := metrics.NewTransfer("receiver", sess.ID())
	stopMetrics := serveMetrics(opts.MetricsAddr, m)
	defer stopMetrics()

	result, err := receiver.Receive(sess.Endpoint(), sess.PeerAddr(), opts.OutputDir, sess.ID(), m)
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}

	if err := sess.HandleDisconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	logging.For("ftp-receive", sess.ID()).WithField("path", result.Path).WithField("bytes", result.Filesize).Info("transfer complete")
	return nil
}

func serveMetrics(addr string, m prometheus.Collector) func() {
	if addr == "" {
		return func() {}
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(m)
	srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.For("metrics", "").WithError(err).Warn("metrics server stopped")
		}
	}()
	return func() { srv.Close() }
}
