package tagging

// A Stamper hands out the values that order blocks for replacement. A single
// Stamper is shared by every set of a cache, so no two touches ever receive
// the same stamp.
type Stamper struct {
	last uint64
}

// Next returns a value larger than every value returned before.
func (s *Stamper) Next() uint64 {
	s.last++
	return s.last
}

// Last returns the most recently issued value, or 0 if none has been issued.
func (s *Stamper) Last() uint64 {
	return s.last
}

// A VictimFinder decides which block should be evicted and keeps the
// replacement order of blocks up to date.
type VictimFinder interface {
	// FindVictim returns the block in the set that a new block should be
	// placed in.
	FindVictim(set []Block) *Block

	// Visit is called when a block is hit.
	Visit(block *Block)

	// Fill is called when a new block is placed into the cache.
	Fill(block *Block)
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
	stamper *Stamper
}

// NewLRUVictimFinder returns a newly constructed lru evictor.
func NewLRUVictimFinder(stamper *Stamper) *LRUVictimFinder {
	return &LRUVictimFinder{stamper: stamper}
}

// FindVictim returns the first empty block or the least recently used block.
func (e *LRUVictimFinder) FindVictim(set []Block) *Block {
	return oldestOrEmpty(set)
}

// Visit marks the block as the most recently used one.
func (e *LRUVictimFinder) Visit(block *Block) {
	block.Stamp = e.stamper.Next()
}

// Fill marks the block as the most recently used one.
func (e *LRUVictimFinder) Fill(block *Block) {
	block.Stamp = e.stamper.Next()
}

// FIFOVictimFinder evicts the block that entered the cache first. Hits do not
// change the order.
type FIFOVictimFinder struct {
	stamper *Stamper
}

// NewFIFOVictimFinder returns a newly constructed fifo evictor.
func NewFIFOVictimFinder(stamper *Stamper) *FIFOVictimFinder {
	return &FIFOVictimFinder{stamper: stamper}
}

// FindVictim returns the first empty block or the earliest filled block.
func (e *FIFOVictimFinder) FindVictim(set []Block) *Block {
	return oldestOrEmpty(set)
}

// Visit does nothing.
func (e *FIFOVictimFinder) Visit(_ *Block) {}

// Fill records the arrival of the block.
func (e *FIFOVictimFinder) Fill(block *Block) {
	block.Stamp = e.stamper.Next()
}

func oldestOrEmpty(set []Block) *Block {
	for i := range set {
		if !set[i].IsValid {
			return &set[i]
		}
	}

	victim := &set[0]
	for i := 1; i < len(set); i++ {
		if set[i].Stamp < victim.Stamp {
			victim = &set[i]
		}
	}

	return victim
}
