package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/cache/internal/tagging"
)

// Builder can build cache models.
type Builder struct {
	byteSize          int
	wayAssociativity  int
	replacementPolicy ReplacementPolicy
	writePolicy       WritePolicy
}

// MakeBuilder creates a new builder with a 16KB, 4-way, LRU, write-through
// configuration.
func MakeBuilder() Builder {
	return Builder{
		byteSize:          16 * 1024,
		wayAssociativity:  4,
		replacementPolicy: LRU,
		writePolicy:       WriteThrough,
	}
}

// WithByteSize sets the capacity of the cache in bytes.
func (b Builder) WithByteSize(byteSize int) Builder {
	b.byteSize = byteSize
	return b
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithReplacementPolicy sets the replacement policy.
func (b Builder) WithReplacementPolicy(p ReplacementPolicy) Builder {
	b.replacementPolicy = p
	return b
}

// WithWritePolicy sets the write policy.
func (b Builder) WithWritePolicy(p WritePolicy) Builder {
	b.writePolicy = p
	return b
}

// Build creates a cache model with every block invalid and all counters at
// zero.
func (b Builder) Build() (*Model, error) {
	numSets, err := b.numSets()
	if err != nil {
		return nil, err
	}

	stamper := &tagging.Stamper{}

	var victimFinder tagging.VictimFinder

	switch b.replacementPolicy {
	case LRU:
		victimFinder = tagging.NewLRUVictimFinder(stamper)
	case FIFO:
		victimFinder = tagging.NewFIFOVictimFinder(stamper)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidPolicy, b.replacementPolicy)
	}

	if b.writePolicy != WriteThrough && b.writePolicy != WriteBack {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPolicy, b.writePolicy)
	}

	m := &Model{
		config: Config{
			ByteSize:          b.byteSize,
			WayAssociativity:  b.wayAssociativity,
			BlockSize:         BlockSize,
			NumSets:           numSets,
			ReplacementPolicy: b.replacementPolicy,
			WritePolicy:       b.writePolicy,
		},
		tags:         tagging.NewTagArray(numSets, b.wayAssociativity, BlockSize),
		victimFinder: victimFinder,
		stamper:      stamper,
	}

	return m, nil
}

func (b Builder) numSets() (int, error) {
	if b.byteSize <= 0 || b.wayAssociativity <= 0 {
		return 0, fmt.Errorf(
			"%w: size %d and associativity %d must be positive",
			ErrInvalidGeometry, b.byteSize, b.wayAssociativity)
	}

	numLines := b.byteSize / BlockSize
	if b.byteSize%BlockSize != 0 || numLines%b.wayAssociativity != 0 {
		return 0, fmt.Errorf(
			"%w: size %d is not a multiple of %d bytes x %d ways",
			ErrInvalidGeometry, b.byteSize, BlockSize, b.wayAssociativity)
	}

	return numLines / b.wayAssociativity, nil
}

// New builds a cache model with the given organization.
func New(
	byteSize, wayAssociativity int,
	replacementPolicy ReplacementPolicy,
	writePolicy WritePolicy,
) (*Model, error) {
	return MakeBuilder().
		WithByteSize(byteSize).
		WithWayAssociativity(wayAssociativity).
		WithReplacementPolicy(replacementPolicy).
		WithWritePolicy(writePolicy).
		Build()
}
