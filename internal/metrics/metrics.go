// Package metrics exposes per-session transfer counters as Prometheus
// metrics. It follows the custom prometheus.Collector pattern (a struct
// of Desc values plus Describe/Collect) rather than promauto's global
// registry, so each transfer's collector can be registered and
// unregistered independently of any other concurrent transfer in the
// same process.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters is a point-in-time snapshot of one transfer's counters.
type Counters struct {
	BytesSent          uint64
	BytesReceived      uint64
	SegmentsSent       uint64
	SegmentsReceived   uint64
	Retransmissions    uint64
	Timeouts           uint64
	ChecksumFailures   uint64
	DupAcks            uint64
	OutOfOrderHoldover uint64

	// Fault-injector-observed counters. These are distinct from
	// Retransmissions (which counts protocol-level recovery the Sender
	// Engine itself drives) so enabling fault injection never inflates
	// the protocol counters it is merely the cause of.
	FaultPacketsDropped       uint64
	FaultPacketsCorrupted     uint64
	FaultRetransmissionEvents uint64
}

// Transfer is a prometheus.Collector scoped to a single session ID and
// role ("sender" or "receiver"). Zero value is not usable; use NewTransfer.
type Transfer struct {
	mu   sync.Mutex
	c    Counters
	cwnd float64

	bytesDesc        *prometheus.Desc
	segsDesc         *prometheus.Desc
	retransDesc      *prometheus.Desc
	timeoutsDesc     *prometheus.Desc
	checksumFailDesc *prometheus.Desc
	dupAckDesc       *prometheus.Desc
	cwndDesc         *prometheus.Desc
	holdoverDesc     *prometheus.Desc
	faultDroppedDesc *prometheus.Desc
	faultCorruptDesc *prometheus.Desc
	faultRetransDesc *prometheus.Desc
}

// NewTransfer builds a collector labeled with role and sessionID.
func NewTransfer(role, sessionID string) *Transfer {
	constLabels := prometheus.Labels{"role": role, "session": sessionID}
	return &Transfer{
		bytesDesc:        prometheus.NewDesc("ftp_bytes_total", "Bytes transferred.", []string{"direction"}, constLabels),
		segsDesc:         prometheus.NewDesc("ftp_segments_total", "Segments transferred.", []string{"direction"}, constLabels),
		retransDesc:      prometheus.NewDesc("ftp_retransmissions_total", "Retransmission events (timeouts and fast retransmits) started by the sender.", nil, constLabels),
		timeoutsDesc:     prometheus.NewDesc("ftp_timeouts_total", "Receive-timeout events observed by the sender.", nil, constLabels),
		checksumFailDesc: prometheus.NewDesc("ftp_checksum_failures_total", "DATA packets the receiver rejected on checksum.", nil, constLabels),
		dupAckDesc:       prometheus.NewDesc("ftp_dup_acks_total", "Duplicate ACKs observed by the sender.", nil, constLabels),
		cwndDesc:         prometheus.NewDesc("ftp_cwnd", "Current congestion window (floored effective window uses this).", nil, constLabels),
		holdoverDesc:     prometheus.NewDesc("ftp_out_of_order_holdovers_total", "DATA packets the receiver buffered out of order instead of delivering immediately.", nil, constLabels),
		faultDroppedDesc: prometheus.NewDesc("ftp_fault_injector_dropped_total", "DATA packets the fault injector dropped on first transmission.", nil, constLabels),
		faultCorruptDesc: prometheus.NewDesc("ftp_fault_injector_corrupted_total", "DATA packets the fault injector corrupted on first transmission.", nil, constLabels),
		faultRetransDesc: prometheus.NewDesc("ftp_fault_injector_retransmission_events_total", "DATA packets the fault injector observed being retransmitted.", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (t *Transfer) Describe(ch chan<- *prometheus.Desc) {
	ch <- t.bytesDesc
	ch <- t.segsDesc
	ch <- t.retransDesc
	ch <- t.timeoutsDesc
	ch <- t.checksumFailDesc
	ch <- t.dupAckDesc
	ch <- t.cwndDesc
	ch <- t.holdoverDesc
	ch <- t.faultDroppedDesc
	ch <- t.faultCorruptDesc
	ch <- t.faultRetransDesc
}

// Collect implements prometheus.Collector.
func (t *Transfer) Collect(ch chan<- prometheus.Metric) {
	t.mu.Lock()
	c := t.c
	cwnd := t.cwnd
	t.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(t.bytesDesc, prometheus.CounterValue, float64(c.BytesSent), "sent")
	ch <- prometheus.MustNewConstMetric(t.bytesDesc, prometheus.CounterValue, float64(c.BytesReceived), "received")
	ch <- prometheus.MustNewConstMetric(t.segsDesc, prometheus.CounterValue, float64(c.SegmentsSent), "sent")
	ch <- prometheus.MustNewConstMetric(t.segsDesc, prometheus.CounterValue, float64(c.SegmentsReceived), "received")
	ch <- prometheus.MustNewConstMetric(t.retransDesc, prometheus.CounterValue, float64(c.Retransmissions))
	ch <- prometheus.MustNewConstMetric(t.timeoutsDesc, prometheus.CounterValue, float64(c.Timeouts))
	ch <- prometheus.MustNewConstMetric(t.checksumFailDesc, prometheus.CounterValue, float64(c.ChecksumFailures))
	ch <- prometheus.MustNewConstMetric(t.dupAckDesc, prometheus.CounterValue, float64(c.DupAcks))
	ch <- prometheus.MustNewConstMetric(t.cwndDesc, prometheus.GaugeValue, cwnd)
	ch <- prometheus.MustNewConstMetric(t.holdoverDesc, prometheus.CounterValue, float64(c.OutOfOrderHoldover))
	ch <- prometheus.MustNewConstMetric(t.faultDroppedDesc, prometheus.CounterValue, float64(c.FaultPacketsDropped))
	ch <- prometheus.MustNewConstMetric(t.faultCorruptDesc, prometheus.CounterValue, float64(c.FaultPacketsCorrupted))
	ch <- prometheus.MustNewConstMetric(t.faultRetransDesc, prometheus.CounterValue, float64(c.FaultRetransmissionEvents))
}

// Snapshot returns a copy of the current counters, for tests and for the
// CLI's end-of-transfer summary line.
func (t *Transfer) Snapshot() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}

func (t *Transfer) AddBytesSent(n uint64) {
	t.mu.Lock()
	t.c.BytesSent += n
	t.mu.Unlock()
}

func (t *Transfer) AddBytesReceived(n uint64) {
	t.mu.Lock()
	t.c.BytesReceived += n
	t.mu.Unlock()
}

func (t *Transfer) AddSegmentsSent(n uint64) {
	t.mu.Lock()
	t.c.SegmentsSent += n
	t.mu.Unlock()
}

func (t *Transfer) AddSegmentsReceived(n uint64) {
	t.mu.Lock()
	t.c.SegmentsReceived += n
	t.mu.Unlock()
}

func (t *Transfer) AddRetransmissions(n uint64) {
	t.mu.Lock()
	t.c.Retransmissions += n
	t.mu.Unlock()
}

func (t *Transfer) AddTimeout() {
	t.mu.Lock()
	t.c.Timeouts++
	t.mu.Unlock()
}

func (t *Transfer) AddChecksumFailure() {
	t.mu.Lock()
	t.c.ChecksumFailures++
	t.mu.Unlock()
}

func (t *Transfer) AddDupAck() {
	t.mu.Lock()
	t.c.DupAcks++
	t.mu.Unlock()
}

func (t *Transfer) SetCwnd(v float64) {
	t.mu.Lock()
	t.cwnd = v
	t.mu.Unlock()
}

func (t *Transfer) AddOutOfOrderHoldover() {
	t.mu.Lock()
	t.c.OutOfOrderHoldover++
	t.mu.Unlock()
}

func (t *Transfer) AddFaultPacketsDropped(n uint64) {
	t.mu.Lock()
	t.c.FaultPacketsDropped += n
	t.mu.Unlock()
}

func (t *Transfer) AddFaultPacketsCorrupted(n uint64) {
	t.mu.Lock()
	t.c.FaultPacketsCorrupted += n
	t.mu.Unlock()
}

func (t *Transfer) AddFaultRetransmissionEvent() {
	t.mu.Lock()
	t.c.FaultRetransmissionEvents++
	t.mu.Unlock()
}
