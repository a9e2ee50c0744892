package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/medkit/core/operation"
)

// DocSummary describes the annotations of one processed document
type DocSummary struct {
	DocID       string         `json:"doc_id"`
	File        string         `json:"file,omitempty"`
	Annotations map[string]int `json:"annotations"` // count by label
}

// Total returns the number of annotations
func (s DocSummary) Total() int {
	total := 0
	for _, n := range s.Annotations {
		total += n
	}
	return total
}

// RenderSummary writes one row per document with its annotation counts
func RenderSummary(w io.Writer, summaries []DocSummary) error {
	data := pterm.TableData{{"File", "Document", "Annotations", "By label"}}
	for _, s := range summaries {
		labels := make([]string, 0, len(s.Annotations))
		for label := range s.Annotations {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		counts := make([]string, len(labels))
		for i, label := range labels {
			counts[i] = fmt.Sprintf("%s=%d", label, s.Annotations[label])
		}
		data = append(data, []string{s.File, s.DocID, fmt.Sprintf("%d", s.Total()), strings.Join(counts, " ")})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// RenderOperations writes the registered operations
func RenderOperations(w io.Writer, ops []operation.Metadata) error {
	data := pterm.TableData{{"Operation", "Description"}}
	for _, op := range ops {
		data = append(data, []string{op.Name, op.Description})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
