package prov

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// DotOptions controls WriteDot
type DotOptions struct {
	// MaxSubGraphDepth limits how many levels of sub graphs are expanded;
	// nil expands all of them.
	MaxSubGraphDepth *int
	// ShowAttrLinks draws dashed edges from annotations to their attributes
	ShowAttrLinks bool
	// DataItemFormatter labels data item nodes, DefaultDataItemFormatter when nil
	DataItemFormatter func(core.DataItem) string
	// OpFormatter labels derivation edges, DefaultOpFormatter when nil
	OpFormatter func(*core.OperationDescription) string
}

// DotOptionsFromConfig maps the provenance configuration to DotOptions
func DotOptionsFromConfig(cfg config.ProvenanceConfig) DotOptions {
	return DotOptions{
		MaxSubGraphDepth: cfg.MaxDepth(),
		ShowAttrLinks:    cfg.ShowAttrLinks,
	}
}

// DefaultDataItemFormatter renders "label: text" for text annotations,
// "label: value" for attributes and the operation name for operation
// descriptions.
func DefaultDataItemFormatter(item core.DataItem) string {
	switch v := item.(type) {
	case *core.Attribute:
		return fmt.Sprintf("%s: %v", v.Label, v.Value)
	case *core.OperationDescription:
		return v.Name
	case interface {
		Label() string
		Text() string
	}:
		return v.Label() + ": " + v.Text()
	case interface{ Label() string }:
		return v.Label()
	case core.Kinded:
		return v.Kind()
	default:
		return item.ID()
	}
}

// DefaultOpFormatter renders the operation name
func DefaultOpFormatter(op *core.OperationDescription) string {
	return op.Name
}

// WriteDot writes the graph of t as a graphviz digraph. Node labels are
// resolved through the tracer store; stub nodes label their edges
// "Unknown". The tracer is not modified.
func WriteDot(w io.Writer, t *Tracer, opts DotOptions) error {
	if opts.DataItemFormatter == nil {
		opts.DataItemFormatter = DefaultDataItemFormatter
	}
	if opts.OpFormatter == nil {
		opts.OpFormatter = DefaultOpFormatter
	}

	bw := bufio.NewWriter(w)
	dw := &dotWriter{w: bw, store: t.store, opts: opts}
	if _, err := bw.WriteString("digraph {\n\n"); err != nil {
		return errors.Wrap(err, "write dot header")
	}
	if err := dw.writeGraph(t.graph, 0); err != nil {
		return err
	}
	if _, err := bw.WriteString("\n\n}"); err != nil {
		return errors.Wrap(err, "write dot footer")
	}
	return bw.Flush()
}

type dotWriter struct {
	w     *bufio.Writer
	store core.Store
	opts  DotOptions
}

func (d *dotWriter) writeGraph(g *Graph, depth int) error {
	expand := d.opts.MaxSubGraphDepth == nil || depth < *d.opts.MaxSubGraphDepth

	for _, n := range g.Nodes() {
		if expand && !n.IsStub() && g.HasSubGraph(n.OperationID) {
			continue
		}
		if err := d.writeNode(n); err != nil {
			return err
		}
	}

	if expand {
		for _, sub := range g.SubGraphs() {
			if err := d.writeGraph(sub, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *dotWriter) writeNode(n Node) error {
	item, err := d.store.Get(n.DataItemID)
	if err != nil {
		return errors.Wrapf(err, "load data item %s for dot export", n.DataItemID)
	}
	fmt.Fprintf(d.w, "%s [label=%s];\n", quote(item.ID()), quote(d.opts.DataItemFormatter(item)))

	opLabel := "Unknown"
	if !n.IsStub() {
		opItem, err := d.store.Get(n.OperationID)
		if err != nil {
			return errors.Wrapf(err, "load operation %s for dot export", n.OperationID)
		}
		op, ok := opItem.(*core.OperationDescription)
		if !ok {
			return errors.AssertionFailedf("data item %s is a %T, not an operation description", n.OperationID, opItem)
		}
		opLabel = d.opts.OpFormatter(op)
	}
	for _, src := range n.SourceIDs {
		fmt.Fprintf(d.w, "%s -> %s [label=%s];\n", quote(src), quote(item.ID()), quote(opLabel))
	}
	d.w.WriteString("\n\n")

	if holder, ok := item.(core.AttributeHolder); ok && d.opts.ShowAttrLinks {
		for _, attr := range holder.Attrs().All() {
			fmt.Fprintf(d.w, "%s -> %s [style=dashed, color=grey, label=\"attr\", fontcolor=grey];\n", quote(item.ID()), quote(attr.ID()))
		}
	}
	return nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", " ", "\n", " ", "\r", " ")

// quote returns s as a DOT quoted id. Only backslashes and double quotes are
// escaped, newlines are flattened to spaces.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
