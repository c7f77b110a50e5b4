package common

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MergeInput identifies one file that went into a merge.
type MergeInput struct {
	Name   string `json:"name"`
	Sha256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Offset string `json:"offset,omitempty"`
}

// MergeLogEntry captures a single completed merge for audit purposes.
type MergeLogEntry struct {
	Output       string       `json:"output"`
	OutputSha256 string       `json:"outputSha256"`
	Inputs       []MergeInput `json:"inputs"`
	Profile      string       `json:"profile,omitempty"`
	HeaderSize   uint32       `json:"headerSize"`
	TotalSize    uint32       `json:"totalSize"`
	EntryCount   int          `json:"entryCount"`
	DurationMs   int64        `json:"durationMs,omitempty"`
	Ts           time.Time    `json:"ts"`
}

// MergeLog provides append-only access to a JSONL audit log.
type MergeLog struct {
	path string
	mu   sync.Mutex
}

// NewMergeLog returns a MergeLog that writes to the provided path.
func NewMergeLog(path string) *MergeLog {
	return &MergeLog{path: path}
}

// Path returns the backing file path for the log.
func (m *MergeLog) Path() string {
	if m == nil {
		return ""
	}
	return m.path
}

// Append writes a new entry to the audit log. Entries are serialized as
// JSON objects, one per line, to make downstream consumption and replay
// straightforward.
func (m *MergeLog) Append(entry MergeLogEntry) error {
	if m == nil {
		return errors.New("nil merge log")
	}
	if entry.Output == "" {
		return errors.New("merge entry missing output path")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadMergeLog loads every entry from the supplied JSONL file.
func ReadMergeLog(path string) ([]MergeLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []MergeLogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry MergeLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode merge entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
