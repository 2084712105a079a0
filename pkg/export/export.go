// Package export wraps analysis results in a portable envelope and
// serializes them as indented JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tokscope/tokscope/pkg/report"
)

// Payload is the export envelope: one analysis result stamped with the
// run time and the account it targeted.
type Payload struct {
	Timestamp string         `json:"timestamp"`
	Target    string         `json:"target_username"`
	Data      *report.Report `json:"data"`
}

// Wrap stamps rep for export. The target is taken from the profile
// record, which carries the canonical handle whatever form the caller
// originally supplied; the envelope always names a target, so a record
// without one exports under the unknown-handle sentinel.
func Wrap(rep *report.Report) Payload {
	target := rep.Profile.Handle
	if target == "" {
		target = report.UnknownHandle
	}
	return Payload{
		Timestamp: report.Timestamp(time.Now()),
		Target:    target,
		Data:      rep,
	}
}

// Encode writes p to w as indented JSON.
func Encode(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode export payload: %w", err)
	}
	return nil
}

// WriteFile serializes p to path, creating parent directories as needed.
func WriteFile(path string, p Payload) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := Encode(f, p); err != nil {
		f.Close() //nolint:errcheck,gosec // write error already reported
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}
