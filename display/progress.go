package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pterm/pterm"
)

// ProgressEmitter reports the progress of a command.
//
// Implementations include:
// - CLIEmitter: Pretty-printed terminal output using pterm
// - JSONEmitter: One JSON event per line, for scripts
type ProgressEmitter interface {
	EmitStage(stage string, message string)
	EmitProgress(count int, itemType string)
	EmitComplete(summary map[string]interface{})
	EmitError(stage string, err error)
	EmitInfo(message string)
}

// ProgressEvent represents a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"`      // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"` // When this event occurred
	Data      map[string]interface{} `json:"data"`      // Event-specific data
}

// CLIEmitter outputs pretty-printed progress to a terminal using pterm
type CLIEmitter struct {
	w         io.Writer
	verbosity int
}

// NewCLIEmitter creates a CLI progress emitter writing to w
func NewCLIEmitter(w io.Writer, verbosity int) *CLIEmitter {
	return &CLIEmitter{w: w, verbosity: verbosity}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	fmt.Fprintf(e.w, "%s %s: %s\n", pterm.Gray("→"), pterm.LightCyan(stage), message)
}

// EmitProgress prints a processed count
func (e *CLIEmitter) EmitProgress(count int, itemType string) {
	if itemType == "" {
		itemType = "items"
	}
	fmt.Fprintf(e.w, "%s Processed %s %s\n", pterm.LightGreen("✓"), pterm.Green(fmt.Sprintf("%d", count)), itemType)
}

// EmitComplete prints completion summary, in sorted key order
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Success.WithWriter(e.w).Println("Processing complete!")
	if e.verbosity >= 1 {
		keys := make([]string, 0, len(summary))
		for key := range summary {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(e.w, "  %s: %v\n", key, summary[key])
		}
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.WithWriter(e.w).Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints informational message
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.WithWriter(e.w).Println(message)
	}
}

// JSONEmitter writes one ProgressEvent per line
type JSONEmitter struct {
	enc *json.Encoder
	now func() time.Time
}

// NewJSONEmitter creates a JSON progress emitter writing to w
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w), now: time.Now}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	// progress output is best effort
	_ = e.enc.Encode(ProgressEvent{Type: eventType, Timestamp: e.now(), Data: data})
}

func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

func (e *JSONEmitter) EmitProgress(count int, itemType string) {
	e.emit("progress", map[string]interface{}{"count": count, "type": itemType})
}

func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{"stage": stage, "error": err.Error()})
}

func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}
