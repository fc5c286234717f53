// Package audit writes exactly one AuditEntry per query to an append-only
// JSON-lines file and a bounded in-memory ring.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// RingCapacity bounds the in-memory audit ring.
const RingCapacity = 10000

// AnonymizationThreshold is how long an entry is kept unredacted under
// REDACTED privacy mode before query_text/response_summary are scrubbed.
const AnonymizationThreshold = 24 * time.Hour

// PrivacyMode controls how much of an AuditEntry is retained on export/read.
type PrivacyMode string

const (
	PrivacyFull     PrivacyMode = "FULL"
	PrivacyRedacted PrivacyMode = "REDACTED"
	PrivacyMinimal  PrivacyMode = "MINIMAL"
)

// Logger appends AuditEntry records to a JSON-lines file and keeps the
// most recent RingCapacity entries in memory for filter queries.
type Logger struct {
	fileMu sync.Mutex
	file   *os.File

	ringMu sync.Mutex
	ring   []model.AuditEntry
	start  int // index of the oldest entry in ring, once full

	privacy PrivacyMode
}

// New opens (creating if needed) the JSON-lines file at path for append.
func New(path string, privacy PrivacyMode) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f, privacy: privacy, ring: make([]model.AuditEntry, 0, RingCapacity)}, nil
}

// Write appends entry to the in-memory ring and then to the file, and
// returns the file write's error, if any. The ring keeps the entry even
// when the file write fails.
func (l *Logger) Write(entry model.AuditEntry) error {
	l.appendRing(entry)
	return l.appendFile(entry)
}

func (l *Logger) appendRing(entry model.AuditEntry) {
	l.ringMu.Lock()
	defer l.ringMu.Unlock()

	if len(l.ring) < RingCapacity {
		l.ring = append(l.ring, entry)
		return
	}
	l.ring[l.start] = entry
	l.start = (l.start + 1) % RingCapacity
}

func (l *Logger) appendFile(entry model.AuditEntry) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = l.file.Write(b)
	return err
}

// Close closes the underlying file handle.
func (l *Logger) Close() error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	return l.file.Close()
}

// Snapshot returns the ring's current entries in insertion order, each
// passed through the configured privacy mode.
func (l *Logger) Snapshot() []model.AuditEntry {
	l.ringMu.Lock()
	defer l.ringMu.Unlock()

	n := len(l.ring)
	out := make([]model.AuditEntry, n)
	for i := 0; i < n; i++ {
		idx := (l.start + i) % RingCapacity
		out[i] = applyPrivacy(l.ring[idx], l.privacy, time.Now())
	}
	return out
}
