package common

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.SetTotalBytes(200)
	m.Start()
	m.AddImage(50)
	m.AddImage(50)
	m.IncFailure()
	m.Stop()

	snap := m.Snapshot()
	if snap.Images != 2 {
		t.Errorf("images = %d, want 2", snap.Images)
	}
	if snap.Bytes != 100 {
		t.Errorf("bytes = %d, want 100", snap.Bytes)
	}
	if snap.Failures != 1 {
		t.Errorf("failures = %d, want 1", snap.Failures)
	}
	if got := snap.Completion(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("completion = %v, want 0.5", got)
	}
	if snap.Duration <= 0 {
		t.Errorf("duration = %v, want > 0", snap.Duration)
	}
}

func TestMetricsCompletionClamps(t *testing.T) {
	m := NewMetrics()
	m.SetTotalBytes(10)
	m.AddImage(100)
	if got := m.Snapshot().Completion(); got != 1 {
		t.Errorf("completion = %v, want 1", got)
	}
	if got := (MetricsSnapshot{}).Completion(); got != 0 {
		t.Errorf("zero snapshot completion = %v, want 0", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{3 << 20, "3.00 MiB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProgressPrinterStops(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	m.AddImage(1024)
	stop := StartProgressPrinter(&buf, m, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	stop()
	if !strings.Contains(buf.String(), "Merged: 1 images") {
		t.Errorf("progress output missing counter line: %q", buf.String())
	}
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadImageFile(path)
	if err != nil {
		t.Fatalf("ReadImageFile: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadImageFile = %x, want %x", got, want)
	}
	if _, err := ReadImageFile(filepath.Join(dir, "missing.bin")); err == nil {
		t.Errorf("expected error on missing file")
	}
}
