// Package recorder writes emitted packet rows to the plain-text session
// format and, optionally, into the sqlite session archive. The text format is
// the replay input format: every payload element printed with "%v" and a
// ": " separator, one packet per line.
package recorder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/biodata-sonata/motion.report/internal/archive"
)

// Recorder persists rows to a writer and an optional archive session. Safe
// for use from a single ingestion goroutine; the mutex only guards against a
// concurrent Close.
type Recorder struct {
	mu      sync.Mutex
	w       io.Writer
	arch    *archive.Archive
	session string
}

// New builds a recorder over w. arch may be nil to disable archiving;
// sessionID must be a started archive session otherwise.
func New(w io.Writer, arch *archive.Archive, sessionID string) *Recorder {
	return &Recorder{w: w, arch: arch, session: sessionID}
}

// OpenSessionFile creates dir if needed and opens a timestamped recording
// file inside it.
func OpenSessionFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recording dir: %w", err)
	}
	name := time.Now().Format("02.01.2006-15.04.05") + ".txt"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("recording file: %w", err)
	}
	return f, nil
}

// FormatRow renders one payload in the recording format, without the
// trailing newline.
func FormatRow(payload []interface{}) string {
	var b strings.Builder
	for _, v := range payload {
		fmt.Fprintf(&b, "%v: ", v)
	}
	return b.String()
}

// RecordRow writes one payload as a line and archives it when an archive
// session is attached.
func (r *Recorder) RecordRow(payload []interface{}) error {
	line := FormatRow(payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w != nil {
		if _, err := io.WriteString(r.w, line+"\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if r.arch != nil {
		if err := r.arch.AppendRow(r.session, compositeOf(payload), line); err != nil {
			return err
		}
	}
	return nil
}

// compositeOf pulls the leading composite id out of a payload. Rows always
// start with the id; 0 marks a malformed row rather than failing the write.
func compositeOf(payload []interface{}) int {
	if len(payload) == 0 {
		return 0
	}
	switch v := payload[0].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
