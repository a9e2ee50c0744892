package store

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// Codec serializes one kind of data item for persistent stores.
// Decode receives the id separately because ids are not part of payloads.
type Codec struct {
	Encode func(item core.DataItem) ([]byte, error)
	Decode func(id string, payload []byte) (core.DataItem, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]Codec)
)

// RegisterCodec makes a codec available for kind. Modality packages register
// their annotation codecs from init. Registering a kind twice panics.
func RegisterCodec(kind string, codec Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()

	if codec.Encode == nil || codec.Decode == nil {
		panic("store: codec for " + kind + " is incomplete")
	}
	if _, dup := codecs[kind]; dup {
		panic("store: codec already registered for " + kind)
	}
	codecs[kind] = codec
}

// RegisteredKinds lists the kinds with a codec, sorted
func RegisteredKinds() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	kinds := make([]string, 0, len(codecs))
	for k := range codecs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func lookupCodec(kind string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	c, ok := codecs[kind]
	if !ok {
		return Codec{}, errors.WithHint(
			errors.NewNotFoundError("no codec registered for kind %q", kind),
			"import the package defining this annotation type so that it registers its codec",
		)
	}
	return c, nil
}

type attributePayload struct {
	Label    string         `json:"label"`
	Value    any            `json:"value,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type operationPayload struct {
	Name      string         `json:"name"`
	ClassName string         `json:"class_name"`
	Config    map[string]any `json:"config,omitempty"`
}

func init() {
	RegisterCodec(core.KindAttribute, Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			a, ok := item.(*core.Attribute)
			if !ok {
				return nil, errors.AssertionFailedf("attribute codec got %T", item)
			}
			return json.Marshal(attributePayload{Label: a.Label, Value: a.Value, Metadata: a.Metadata})
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			var p attributePayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, errors.Wrapf(err, "decode attribute %s", id)
			}
			a := core.NewAttributeWithID(id, p.Label, p.Value)
			a.Metadata = p.Metadata
			return a, nil
		},
	})

	RegisterCodec(core.KindOperation, Codec{
		Encode: func(item core.DataItem) ([]byte, error) {
			d, ok := item.(*core.OperationDescription)
			if !ok {
				return nil, errors.AssertionFailedf("operation codec got %T", item)
			}
			return json.Marshal(operationPayload{Name: d.Name, ClassName: d.ClassName, Config: d.Config})
		},
		Decode: func(id string, payload []byte) (core.DataItem, error) {
			var p operationPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, errors.Wrapf(err, "decode operation %s", id)
			}
			return core.NewOperationDescription(id, p.ClassName, p.Name, p.Config), nil
		},
	})
}
