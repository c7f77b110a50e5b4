package common

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Metrics accumulates merge throughput counters. All methods are safe
// for concurrent use; the progress printer samples it from its own
// goroutine while merges run.
type Metrics struct {
	mu       sync.Mutex
	started  time.Time
	finished time.Time
	bytes    int64
	expected int64
	images   int64
	failures int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Duration   time.Duration
	Bytes      int64
	TotalBytes int64
	Images     int64
	Failures   int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Start marks the beginning of the measured window. Repeated calls
// after the first are ignored so wrappers can call it defensively.
func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.IsZero() {
		m.started = time.Now()
		m.finished = time.Time{}
	}
}

// Stop closes the measured window. Only the first call after Start
// takes effect.
func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started.IsZero() && m.finished.IsZero() {
		m.finished = time.Now()
	}
}

// AddImage records one produced output image of the given size.
func (m *Metrics) AddImage(size int64) {
	if size < 0 {
		return
	}
	m.mu.Lock()
	m.images++
	m.bytes += size
	m.mu.Unlock()
}

// IncFailure records a merge that returned an error.
func (m *Metrics) IncFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

// SetTotalBytes fixes the expected input volume so progress can be
// reported as a percentage.
func (m *Metrics) SetTotalBytes(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.expected = total
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Bytes:      m.bytes,
		TotalBytes: m.expected,
		Images:     m.images,
		Failures:   m.failures,
	}
	switch {
	case m.started.IsZero():
	case m.finished.IsZero():
		snap.Duration = time.Since(m.started)
	default:
		snap.Duration = m.finished.Sub(m.started)
	}
	return snap
}

func (s MetricsSnapshot) ThroughputBytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

// Completion reports progress in [0,1] against the expected volume, or
// zero when no expectation was set.
func (s MetricsSnapshot) Completion() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	ratio := float64(s.Bytes) / float64(s.TotalBytes)
	return min(max(ratio, 0), 1)
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	value := float64(b)
	for _, prefix := range []string{"KiB", "MiB", "GiB", "TiB", "PiB"} {
		value /= unit
		if value < unit {
			return fmt.Sprintf("%.2f %s", value, prefix)
		}
	}
	return fmt.Sprintf("%.2f EiB", value/unit)
}

func (s MetricsSnapshot) progressLine() string {
	throughput := s.ThroughputBytesPerSecond() / (1024 * 1024)
	if s.TotalBytes > 0 {
		return fmt.Sprintf("Progress: %6.2f%% (%s / %s) %.2f MiB/s",
			s.Completion()*100, FormatBytes(s.Bytes), FormatBytes(s.TotalBytes), throughput)
	}
	return fmt.Sprintf("Merged: %d images, %s %.2f MiB/s", s.Images, FormatBytes(s.Bytes), throughput)
}

// StartProgressPrinter redraws a single progress line on w every
// interval until the returned stop function is called. Stop clears the
// line and waits for the printer goroutine to exit.
func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if w == nil || m == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		width := 0
		for {
			select {
			case <-ticker.C:
				line := m.Snapshot().progressLine()
				if pad := width - len(line); pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(w, "\r%s", line)
				width = len(line)
			case <-done:
				if width > 0 {
					fmt.Fprintf(w, "\r%s\r\n", strings.Repeat(" ", width))
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		<-idle
	}
}
