// Package cache provides a trace-driven model of a single-level
// set-associative cache.
//
// The model only decides what is stored in the cache. For every access it
// counts hits and misses, and the traffic to the backing memory that the
// configured replacement and write policies cause.
package cache

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cachesim/cache/internal/tagging"
)

// BlockSize is the number of bytes in a cache line.
const BlockSize = 64

// A Block is the information associated with one cache line.
type Block = tagging.Block

var (
	// ErrInvalidGeometry is returned when the cache size and associativity
	// do not describe a whole, positive number of sets.
	ErrInvalidGeometry = errors.New("invalid cache geometry")

	// ErrInvalidPolicy is returned for unknown policy values.
	ErrInvalidPolicy = errors.New("invalid cache policy")

	// ErrInvalidOp is returned when an operation code cannot be parsed.
	ErrInvalidOp = errors.New("invalid operation")
)

// Op is the kind of a memory access.
type Op int

// The supported memory operations.
const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "R"
	case OpWrite:
		return "W"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// ParseOp converts a single character operation code into an Op. Both upper
// and lower case are accepted.
func ParseOp(code string) (Op, error) {
	switch code {
	case "R", "r":
		return OpRead, nil
	case "W", "w":
		return OpWrite, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOp, code)
	}
}

// ReplacementPolicy selects the block to evict from a full set.
type ReplacementPolicy int

// The supported replacement policies.
const (
	LRU ReplacementPolicy = iota
	FIFO
)

func (p ReplacementPolicy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case FIFO:
		return "FIFO"
	default:
		return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
	}
}

// WritePolicy decides when writes reach the backing memory.
type WritePolicy int

// The supported write policies.
const (
	WriteThrough WritePolicy = iota
	WriteBack
)

func (p WritePolicy) String() string {
	switch p {
	case WriteThrough:
		return "WriteThrough"
	case WriteBack:
		return "WriteBack"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// Config describes the organization of a cache.
type Config struct {
	ByteSize          int
	WayAssociativity  int
	BlockSize         int
	NumSets           int
	ReplacementPolicy ReplacementPolicy
	WritePolicy       WritePolicy
}
