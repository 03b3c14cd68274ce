// Package idgen provides identifier generators for clocks and callbacks.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// NewSequential returns a generator whose first emitted ID is "1".
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewSequentialWithPrefix returns a generator emitting "prefix-1",
// "prefix-2", and so on.
func NewSequentialWithPrefix(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix + "-"}
}

type sequentialGenerator struct {
	prefix string
	next   uint64
}

func (g *sequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.next, 1)
	return g.prefix + strconv.FormatUint(n, 10)
}

// NewXID returns a generator of globally unique, sortable IDs.
func NewXID() Generator {
	return xidGenerator{}
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
