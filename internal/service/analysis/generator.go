package analysis

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Generator produces unique analysis IDs for one process lifetime.
type Generator struct {
	counter uint64
	epoch   int64
}

// NewGenerator creates an ID generator.
func NewGenerator() *Generator {
	return &Generator{epoch: time.Now().UnixMilli()}
}

// Next returns the next analysis ID.
func (g *Generator) Next() string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("analysis-%d-%d", g.epoch, n)
}
