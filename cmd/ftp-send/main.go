// Command ftp-send connects to a receiver and sends one file.
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
	"github.com/iLukSbr/reliable-udp-ftp/internal/sender"
	"github.com/iLukSbr/reliable-udp-ftp/internal/session"
)

func main() {
	opts := config.DefaultSenderOptions()
	var dropSeqInts, corruptSeqInts []int
	var logLevel string

	cmd := &cobra.Command{
		Use:   "ftp-send FILE",
		Short: "Send a file to a reliable-udp-ftp receiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.FilePath = args[0]
			logging.SetLevel(logLevel)
			if err := config.ValidateSender(opts); err != nil {
				return err
			}
			return run(opts, toUint32s(dropSeqInts), toUint32s(corruptSeqInts))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Host, "host", opts.Host, "receiver host")
	flags.IntVar(&opts.Port, "port", opts.Port, "receiver port")
	flags.Float64Var(&opts.DropRate, "drop-rate", 0, "probability of dropping a DATA packet on first send")
	flags.Float64Var(&opts.CorruptRate, "corrupt-rate", 0, "probability of corrupting a DATA packet on first send")
	flags.IntSliceVar(&dropSeqInts, "drop-seq", nil, "sequence numbers to drop on first send")
	flags.IntSliceVar(&corruptSeqInts, "corrupt-seq", nil, "sequence numbers to corrupt on first send")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on (empty disables)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts config.SenderOptions, dropSeqs, corruptSeqs []uint32) error {
	sess, err := session.Connect(opts.Host, opts.Port)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Close()

	m := metrics.NewTransfer("sender", sess.ID())
	stopMetrics := serveMetrics(opts.MetricsAddr, m)
	defer stopMetrics()

	var writer sender.Writer = sess.Endpoint()
	var injector *sender.FaultInjector
	if opts.DropRate > 0 || opts.CorruptRate > 0 || len(dropSeqs) > 0 || len(corruptSeqs) > 0 {
		injector = sender.NewFaultInjector(writer, dropSeqs, corruptSeqs, opts.DropRate, opts.CorruptRate, 1, m)
		writer = injector
	}

	stats, err := sender.Send(writer, sess.Endpoint(), sess.PeerAddr(), opts.FilePath, sess.ID(), m)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if err := sess.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	log := logging.For("ftp-send", sess.ID())
	log.WithField("retransmissions", stats.Retransmissions).Info("transfer complete")
	if injector != nil {
		fs := injector.Stats()
		log.WithField("dropped", fs.PacketsDropped).WithField("corrupted", fs.PacketsCorrupted).WithField("retransmissions", fs.Retransmissions).Info("fault injection summary")
	}
	return nil
}

func toUint32s(ints []int) []uint32 {
	out := make([]uint32, len(ints))
	for i, v := range ints {
		out[i] = uint32(v)
	}
	return out
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
