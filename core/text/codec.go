package text

import (
	"encoding/json"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
)

type segmentPayload struct {
	Label    string          `json:"label"`
	Text     string          `json:"text"`
	Spans    json.RawMessage `json:"spans"`
	Keys     []string        `json:"keys,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

type relationPayload struct {
	Label    string         `json:"label"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Keys     []string       `json:"keys,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func encodeSegment(s *Segment) ([]byte, error) {
	spans, err := MarshalSpans(s.spans)
	if err != nil {
		return nil, err
	}
	return json.Marshal(segmentPayload{
		Label:    s.Label(),
		Text:     s.text,
		Spans:    spans,
		Keys:     s.Keys(),
		Metadata: s.Metadata,
	})
}

func decodeSegment(id string, payload []byte) (*Segment, error) {
	var p segmentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.Wrapf(err, "decode segment %s", id)
	}
	spans, err := UnmarshalSpans(p.Spans)
	if err != nil {
		return nil, errors.Wrapf(err, "decode segment %s", id)
	}
	return NewSegment(p.Label, p.Text, spans,
		core.WithID(id), core.WithKeys(p.Keys...), core.WithMetadata(p.Metadata))
}

func init() {
	store.RegisterCodec(KindSegment, store.Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			s, ok := item.(*Segment)
			if !ok {
				return nil, errors.AssertionFailedf("segment codec got %T", item)
			}
			return encodeSegment(s)
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			return decodeSegment(id, payload)
		},
	})

	store.RegisterCodec(KindEntity, store.Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			e, ok := item.(*Entity)
			if !ok {
				return nil, errors.AssertionFailedf("entity codec got %T", item)
			}
			return encodeSegment(&e.Segment)
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			s, err := decodeSegment(id, payload)
			if err != nil {
				return nil, err
			}
			return &Entity{Segment: *s}, nil
		},
	})

	store.RegisterCodec(KindRelation, store.Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			r, ok := item.(*Relation)
			if !ok {
				return nil, errors.AssertionFailedf("relation codec got %T", item)
			}
			return json.Marshal(relationPayload{
				Label:    r.Label(),
				SourceID: r.SourceID,
				TargetID: r.TargetID,
				Keys:     r.Keys(),
				Metadata: r.Metadata,
			})
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			var p relationPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, errors.Wrapf(err, "decode relation %s", id)
			}
			return NewRelation(p.Label, p.SourceID, p.TargetID,
				core.WithID(id), core.WithKeys(p.Keys...), core.WithMetadata(p.Metadata))
		},
	})
}
