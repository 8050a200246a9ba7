package gatehousehttp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	logSinkCapacity = 10000
	logFlushBuffer  = 128 * 1024
	logFlushPeriod  = 100 * time.Millisecond
)

// LogSink is a bounded, asynchronous fan-in for one log stream (access
// or error). Producers call Write, which blocks once the internal
// channel is full rather than dropping records (spec.md §4.7/§9:
// backpressure, not loss). A background goroutine drains the channel
// into a buffered file writer flushed on a fixed tick and on Close.
type LogSink struct {
	ch     chan string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	done   chan struct{}
	depth  prometheus.Gauge
}

// NewLogSink opens path for appending and starts the drain goroutine.
// name is used only to label the queue-depth gauge (e.g. "access",
// "error").
func NewLogSink(path, name string) (*LogSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log sink %q: %w", path, err)
	}
	s := &LogSink{
		ch:     make(chan string, logSinkCapacity),
		file:   f,
		writer: bufio.NewWriterSize(f, logFlushBuffer),
		done:   make(chan struct{}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gatehouse_log_sink_queue_depth",
			Help:        "Number of buffered records waiting to be written to a log sink.",
			ConstLabels: prometheus.Labels{"sink": name},
		}),
	}
	go s.run()
	return s, nil
}

// Write enqueues record, blocking if the sink is at capacity.
func (s *LogSink) Write(record string) {
	s.ch <- record
	s.depth.Set(float64(len(s.ch)))
}

func (s *LogSink) run() {
	ticker := time.NewTicker(logFlushPeriod)
	defer ticker.Stop()
	for {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				s.flush()
				close(s.done)
				return
			}
			s.mu.Lock()
			_, _ = s.writer.WriteString(rec)
			_ = s.writer.WriteByte('\n')
			s.mu.Unlock()
			s.depth.Set(float64(len(s.ch)))
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *LogSink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		// Best-effort: a log sink must never bring down request
		// handling, so a write failure here is swallowed after being
		// surfaced to stderr once.
		fmt.Fprintf(os.Stderr, "gatehouse: log sink flush failed: %v\n", err)
	}
}

// Describe/Collect satisfy prometheus.Collector so LogSink can be
// registered directly with a registry.
func (s *LogSink) Describe(ch chan<- *prometheus.Desc) { s.depth.Describe(ch) }
func (s *LogSink) Collect(ch chan<- prometheus.Metric)  { s.depth.Collect(ch) }

// Close stops accepting new records, drains what's pending, and closes
// the underlying file. It respects ctx's deadline while waiting for the
// drain goroutine to finish.
func (s *LogSink) Close(ctx context.Context) error {
	close(s.ch)
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.file.Close()
}

// ErrorRecord formats an error-log line with the
// "[YYYY-MM-DD HH:MM:SS]: <message>" prefix spec.md §4.7 requires.
func ErrorRecord(when time.Time, message string) string {
	return fmt.Sprintf("[%s]: %s", when.Format("2006-01-02 15:04:05"), message)
}
