package core

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGen generates opaque record identifiers.
type IDGen interface {
	NewID() string
}

type uuidGen struct{}

// NewUUIDGen returns an IDGen producing random (v4) UUIDs.
func NewUUIDGen() IDGen { return uuidGen{} }

func (uuidGen) NewID() string { return uuid.New().String() }

// SequenceIDGen produces "<prefix>1", "<prefix>2", ... Safe for concurrent use.
type SequenceIDGen struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewSequenceIDGen(prefix string) *SequenceIDGen {
	return &SequenceIDGen{prefix: prefix}
}

func (g *SequenceIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.prefix + strconv.Itoa(g.next)
}
