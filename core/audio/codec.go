package audio

import (
	"encoding/json"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
)

const (
	bufferTypeMemory      = "memory"
	bufferTypePlaceholder = "placeholder"
)

type bufferPayload struct {
	Type       string      `json:"type"`
	SampleRate int         `json:"sample_rate"`
	NbSamples  int         `json:"nb_samples"`
	NbChannels int         `json:"nb_channels"`
	Signal     [][]float32 `json:"signal,omitempty"`
}

type segmentPayload struct {
	Label    string         `json:"label"`
	Span     Span           `json:"span"`
	Audio    bufferPayload  `json:"audio"`
	Keys     []string       `json:"keys,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func encodeBuffer(buf Buffer) (bufferPayload, error) {
	p := bufferPayload{
		SampleRate: buf.SampleRate(),
		NbSamples:  buf.NbSamples(),
		NbChannels: buf.NbChannels(),
	}
	switch b := buf.(type) {
	case *MemoryBuffer:
		p.Type = bufferTypeMemory
		p.Signal = b.signal
	case *PlaceholderBuffer:
		p.Type = bufferTypePlaceholder
	default:
		// other buffers are persisted as a description of their signal
		p.Type = bufferTypePlaceholder
	}
	return p, nil
}

func decodeBuffer(p bufferPayload) (Buffer, error) {
	switch p.Type {
	case bufferTypeMemory:
		return NewMemoryBuffer(p.Signal, p.SampleRate)
	case bufferTypePlaceholder:
		return NewPlaceholderBuffer(p.SampleRate, p.NbSamples, p.NbChannels), nil
	default:
		return nil, errors.NewInvalidRequestError("unknown audio buffer type %q", p.Type)
	}
}

func init() {
	store.RegisterCodec(KindSegment, store.Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			s, ok := item.(*Segment)
			if !ok {
				return nil, errors.AssertionFailedf("audio segment codec got %T", item)
			}
			buf, err := encodeBuffer(s.audio)
			if err != nil {
				return nil, err
			}
			return json.Marshal(segmentPayload{
				Label:    s.Label(),
				Span:     s.span,
				Audio:    buf,
				Keys:     s.Keys(),
				Metadata: s.Metadata,
			})
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			var p segmentPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, errors.Wrapf(err, "decode audio segment %s", id)
			}
			buf, err := decodeBuffer(p.Audio)
			if err != nil {
				return nil, err
			}
			return NewSegment(p.Label, buf, p.Span,
				core.WithID(id), core.WithKeys(p.Keys...), core.WithMetadata(p.Metadata))
		},
	})
}
