// Package config holds the protocol constants, CLI-facing option
// structs, and field-level validation for both sides of a transfer.
// Validation failures are aggregated with hashicorp/go-multierror so a
// caller sees every invalid field at once instead of only the first.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Protocol constants, fixed by the wire format and the congestion
// control algorithm.
const (
	ChunkSize         = 1024
	RecvWindowSize    = 10
	InitialCwnd       = 1.0
	SsthreshInit      = 64.0
	RetransmitTimeout = 100 * time.Millisecond
	DupAckThreshold   = 3
)

// Defaults for the operational surface.
const (
	DefaultHost      = "localhost"
	DefaultPort      = 5000
	DefaultOutputDir = "received_files"
)

// SenderOptions configures one invocation of the sender CLI.
type SenderOptions struct {
	Host        string
	Port        int
	FilePath    string
	DropRate    float64
	CorruptRate float64
	DropSeqs    []uint32
	MetricsAddr string
}

// ReceiverOptions configures one invocation of the receiver CLI.
type ReceiverOptions struct {
	Host        string
	Port        int
	OutputDir   string
	MetricsAddr string
}

// DefaultSenderOptions returns the documented defaults.
func DefaultSenderOptions() SenderOptions {
	return SenderOptions{Host: DefaultHost, Port: DefaultPort}
}

// DefaultReceiverOptions returns the documented defaults.
func DefaultReceiverOptions() ReceiverOptions {
	return ReceiverOptions{Host: DefaultHost, Port: DefaultPort, OutputDir: DefaultOutputDir}
}

// ValidateHost rejects an empty host; any other value is left to name
// resolution to accept or reject.
func ValidateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("host: must not be empty")
	}
	return nil
}

// ValidatePort rejects a port outside the valid TCP/UDP range.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port: must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateFilePath rejects an empty path.
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("file_path: must not be empty")
	}
	return nil
}

// ValidateRate rejects a probability outside [0, 1].
func ValidateRate(field string, rate float64) error {
	if rate < 0.0 || rate > 1.0 {
		return fmt.Errorf("%s: must be between 0.0 and 1.0, got %v", field, rate)
	}
	return nil
}

// ValidateMetricsAddr rejects a non-empty address that fails to parse as
// host:port; an empty address means "metrics server disabled".
func ValidateMetricsAddr(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("metrics_addr: %w", err)
	}
	return nil
}

// ValidateSender aggregates every invalid field of opts into a single
// *multierror.Error (nil if opts is entirely valid).
func ValidateSender(opts SenderOptions) error {
	var result *multierror.Error
	result = multierror.Append(result, ValidateHost(opts.Host))
	result = multierror.Append(result, ValidatePort(opts.Port))
	result = multierror.Append(result, ValidateFilePath(opts.FilePath))
	result = multierror.Append(result, ValidateRate("drop_rate", opts.DropRate))
	result = multierror.Append(result, ValidateRate("corrupt_rate", opts.CorruptRate))
	result = multierror.Append(result, ValidateMetricsAddr(opts.MetricsAddr))
	return result.ErrorOrNil()
}

// ValidateReceiver aggregates every invalid field of opts into a single
// *multierror.Error (nil if opts is entirely valid).
func ValidateReceiver(opts ReceiverOptions) error {
	var result *multierror.Error
	result = multierror.Append(result, ValidateHost(opts.Host))
	result = multierror.Append(result, ValidatePort(opts.Port))
	result = multierror.Append(result, ValidateMetricsAddr(opts.MetricsAddr))
	return result.ErrorOrNil()
}
