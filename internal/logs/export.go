package logs

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"testplane/internal/store"
)

// Export formats supported by Export.
const (
	FormatJSON = "json"
	FormatText = "text"
)

type exportEntry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	StackTrace string    `json:"stack_trace,omitempty"`
	SourceFile string    `json:"source_file,omitempty"`
	SourceLine int       `json:"source_line,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  *int64    `json:"request_id,omitempty"`
}

// Export writes the entries to w in the requested format. JSON export is a
// single indented array; text export is one formatted line per entry.
func Export(w io.Writer, entries []store.ConsoleLogEntry, format string) error {
	switch format {
	case FormatJSON:
		out := make([]exportEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, exportEntry{
				ID:         e.ID,
				SessionID:  e.SessionID,
				Level:      string(e.Level),
				Message:    e.Message,
				StackTrace: e.StackTrace,
				SourceFile: e.SourceFile,
				SourceLine: e.SourceLine,
				Timestamp:  e.Timestamp,
				RequestID:  e.RequestID,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case FormatText:
		for _, e := range entries {
			if _, err := fmt.Fprintln(w, FormatEntry(e)); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
