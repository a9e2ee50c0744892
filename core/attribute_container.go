package core

import (
	"github.com/teranos/medkit/errors"
)

// AttributeContainer holds the attributes of one annotation, in insertion
// order, with label-filtered retrieval. It is exclusively owned by its
// annotation and is not safe for concurrent use.
//
// Once bound to a Store, every attribute added is also written to the store
// with the owning annotation as parent.
type AttributeContainer struct {
	ownerID string
	store   Store
	attrs   []*Attribute
	byID    map[string]int
	byLabel map[string][]int
}

// NewAttributeContainer returns an empty container for the annotation ownerID
func NewAttributeContainer(ownerID string) *AttributeContainer {
	return &AttributeContainer{
		ownerID: ownerID,
		byID:    make(map[string]int),
		byLabel: make(map[string][]int),
	}
}

// OwnerID returns the id of the annotation owning the container
func (c *AttributeContainer) OwnerID() string { return c.ownerID }

// Add attaches attr. Adding the same attribute id twice is an error.
func (c *AttributeContainer) Add(attr *Attribute) error {
	if attr == nil {
		return errors.NewInvalidRequestError("cannot add nil attribute to annotation %s", c.ownerID)
	}
	if _, exists := c.byID[attr.ID()]; exists {
		return errors.NewConflictError("attribute with id %s already attached to annotation %s", attr.ID(), c.ownerID)
	}
	if c.store != nil {
		if err := c.store.Set(attr, c.ownerID); err != nil {
			return errors.Wrapf(err, "store attribute %s", attr.ID())
		}
	}

	idx := len(c.attrs)
	c.attrs = append(c.attrs, attr)
	c.byID[attr.ID()] = idx
	c.byLabel[attr.Label] = append(c.byLabel[attr.Label], idx)
	return nil
}

// Get returns the attributes with the given label, in insertion order.
// Returns an empty slice when none match.
func (c *AttributeContainer) Get(label string) []*Attribute {
	idxs := c.byLabel[label]
	out := make([]*Attribute, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.attrs[i])
	}
	return out
}

// GetByID returns the attribute with the given id or ErrNotFound.
func (c *AttributeContainer) GetByID(id string) (*Attribute, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("no attribute with id %s on annotation %s", id, c.ownerID)
	}
	return c.attrs[i], nil
}

// All returns every attribute in insertion order
func (c *AttributeContainer) All() []*Attribute {
	out := make([]*Attribute, len(c.attrs))
	copy(out, c.attrs)
	return out
}

// Len returns the number of attributes
func (c *AttributeContainer) Len() int { return len(c.attrs) }

// Bind attaches the container to store and writes the attributes already
// present. Subsequent adds write through.
func (c *AttributeContainer) Bind(store Store) error {
	if store == nil || store == c.store {
		return nil
	}
	for _, attr := range c.attrs {
		if err := store.Set(attr, c.ownerID); err != nil {
			return errors.Wrapf(err, "store attribute %s", attr.ID())
		}
	}
	c.store = store
	return nil
}
