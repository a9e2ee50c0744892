package core

import (
	"sync"

	"github.com/google/uuid"
)

var (
	idMu        sync.RWMutex
	idGenerator = uuid.NewString
)

// GenerateID returns a new random identifier for a data item or operation.
func GenerateID() string {
	idMu.RLock()
	gen := idGenerator
	idMu.RUnlock()
	return gen()
}

// SetIDGenerator replaces the generator behind GenerateID, typically with a
// sequence in tests that compare ids across runs. The returned function
// restores the previous generator.
func SetIDGenerator(gen func() string) (restore func()) {
	idMu.Lock()
	prev := idGenerator
	idGenerator = gen
	idMu.Unlock()

	return func() {
		idMu.Lock()
		idGenerator = prev
		idMu.Unlock()
	}
}

// DeterministicID derives a stable identifier from a reference id, so that
// items synthesized from the same reference (such as the raw segment of a
// document) get the same id every time.
func DeterministicID(referenceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(referenceID)).String()
}
