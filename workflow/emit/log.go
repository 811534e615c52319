package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes structured event output to a writer.
//
// Two modes:
//   - Text (default): human-readable, one "[type] key=value ..." line per event
//   - JSON: one JSON object per line (JSONL), for log pipelines
//
// Example text output:
//
//	[decision] session=s1 correlation=4f1c executor=reviewer approved=false
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stdout when nil).
// Set jsonMode for JSONL output.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event line.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Type          string                 `json:"type"`
		SessionID     string                 `json:"sessionID"`
		CorrelationID string                 `json:"correlationID"`
		ExecutorID    string                 `json:"executorID,omitempty"`
		Fragment      string                 `json:"fragment,omitempty"`
		Text          string                 `json:"text,omitempty"`
		ToolName      string                 `json:"toolName,omitempty"`
		Approved      bool                   `json:"approved,omitempty"`
		Feedback      string                 `json:"feedback,omitempty"`
		Degraded      bool                   `json:"degraded,omitempty"`
		ErrKind       string                 `json:"errKind,omitempty"`
		Meta          map[string]interface{} `json:"meta,omitempty"`
	}{
		Type:          event.Type,
		SessionID:     event.SessionID,
		CorrelationID: event.CorrelationID,
		ExecutorID:    event.ExecutorID,
		Fragment:      event.Fragment,
		Text:          event.Text,
		ToolName:      event.ToolName,
		Approved:      event.Approved,
		Feedback:      event.Feedback,
		Degraded:      event.Degraded,
		ErrKind:       event.ErrKind,
		Meta:          event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] session=%s correlation=%s",
		event.Type, event.SessionID, event.CorrelationID)

	if event.ExecutorID != "" {
		fmt.Fprintf(l.writer, " executor=%s", event.ExecutorID)
	}
	if event.ToolName != "" {
		fmt.Fprintf(l.writer, " tool=%s", event.ToolName)
	}
	if event.Type == TypeDecision {
		fmt.Fprintf(l.writer, " approved=%t", event.Approved)
	}
	if event.Degraded {
		fmt.Fprint(l.writer, " degraded=true")
	}
	if event.ErrKind != "" {
		fmt.Fprintf(l.writer, " errKind=%s", event.ErrKind)
	}
	if event.Text != "" {
		fmt.Fprintf(l.writer, " text=%q", event.Text)
	}
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
