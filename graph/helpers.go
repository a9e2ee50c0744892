package graph

import (
	"encoding/json"
	"io"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/medkit/errors"
)

// compatibleFormats are the format versions Decode accepts
const compatibleFormats = "^1.0"

// WriteJSON writes g as indented JSON
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return errors.Wrap(err, "failed to encode provenance graph")
	}
	return nil
}

// Decode reads a graph written by WriteJSON, possibly by another version
// of medkit, and checks that its format version is supported.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode provenance graph"), errors.ErrInvalidRequest)
	}
	if err := checkFormatVersion(g.Meta.FormatVersion); err != nil {
		return nil, err
	}
	return &g, nil
}

func checkFormatVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid graph format version %q", v), errors.ErrInvalidRequest)
	}
	constraint, err := semver.NewConstraint(compatibleFormats)
	if err != nil {
		return errors.Wrap(err, "invalid format constraint")
	}
	if !constraint.Check(version) {
		return errors.WithHintf(
			errors.NewInvalidRequestError("graph format %s is not supported", v),
			"this version of medkit reads formats %s", compatibleFormats)
	}
	return nil
}
