package cache

// Statistics holds the counters of a simulation run. All counters only grow.
type Statistics struct {
	Hits   uint64
	Misses uint64

	// Reads is the number of blocks fetched from the backing memory.
	Reads uint64

	// Writes is the number of writes that reach the backing memory.
	Writes uint64

	// ReadOps and WriteOps count the processed accesses by kind.
	ReadOps  uint64
	WriteOps uint64

	// Evictions counts valid blocks that were replaced.
	Evictions uint64

	// Writebacks counts dirty blocks written back on eviction.
	Writebacks uint64
}

// Accesses returns the number of accesses processed.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// MissRatio returns misses / (hits + misses), or 0 if nothing was accessed.
func (s Statistics) MissRatio() float64 {
	total := s.Accesses()
	if total == 0 {
		return 0
	}

	return float64(s.Misses) / float64(total)
}
