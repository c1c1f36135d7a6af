// Package tagging keeps track of which blocks a cache currently holds.
package tagging

// A Block of a cache is the information that is associated with a cache line.
type Block struct {
	Tag     uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool

	// Stamp orders the blocks of a set for replacement. Depending on the
	// victim finder it records either the last use or the arrival of the
	// block.
	Stamp uint64
}

// TagArray maps block addresses onto sets and ways.
type TagArray interface {
	// BlockTag returns the block number that an address belongs to.
	BlockTag(addr uint64) uint64

	// GetSet returns the ways of the set that an address maps to.
	GetSet(addr uint64) (set []Block, setID int)

	// Set returns the ways of the set with the given ID.
	Set(setID int) []Block

	// Lookup returns the valid block that holds the address, if any.
	Lookup(addr uint64) (*Block, bool)

	NumSets() int
	NumWays() int
	BlockSize() int

	// TotalSize returns the number of bytes that can be stored.
	TotalSize() uint64

	// Reset invalidates all blocks.
	Reset()
}

// NewTagArray creates a tag array with every block invalid.
func NewTagArray(
	numSets int,
	numWays int,
	blockSize int,
) TagArray {
	t := &tagArrayImpl{
		numSets:   numSets,
		numWays:   numWays,
		blockSize: blockSize,
	}

	t.Reset()

	return t
}

// tagArrayImpl stores all blocks in one buffer, indexed by
// setID*numWays + wayID.
type tagArrayImpl struct {
	numSets   int
	numWays   int
	blockSize int
	blocks    []Block
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

func (t *tagArrayImpl) BlockSize() int {
	return t.blockSize
}

func (t *tagArrayImpl) TotalSize() uint64 {
	return uint64(t.numSets) * uint64(t.numWays) * uint64(t.blockSize)
}

func (t *tagArrayImpl) BlockTag(addr uint64) uint64 {
	return addr / uint64(t.blockSize)
}

func (t *tagArrayImpl) GetSet(addr uint64) (set []Block, setID int) {
	setID = int(t.BlockTag(addr) % uint64(t.numSets))
	set = t.Set(setID)

	return set, setID
}

func (t *tagArrayImpl) Set(setID int) []Block {
	start := setID * t.numWays

	return t.blocks[start : start+t.numWays : start+t.numWays]
}

// Lookup scans the ways in ascending order. Tags are unique within a set, so
// at most one valid block can match.
func (t *tagArrayImpl) Lookup(addr uint64) (*Block, bool) {
	tag := t.BlockTag(addr)
	set, _ := t.GetSet(addr)

	for i := range set {
		block := &set[i]
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return nil, false
}

func (t *tagArrayImpl) Reset() {
	t.blocks = make([]Block, t.numSets*t.numWays)

	for i := 0; i < t.numSets; i++ {
		for j := 0; j < t.numWays; j++ {
			block := &t.blocks[i*t.numWays+j]
			block.SetID = i
			block.WayID = j
		}
	}
}
