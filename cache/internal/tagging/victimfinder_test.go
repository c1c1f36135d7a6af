package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fullSet(stamps ...uint64) []Block {
	set := make([]Block, len(stamps))
	for i, s := range stamps {
		set[i] = Block{WayID: i, IsValid: true, Tag: uint64(i), Stamp: s}
	}

	return set
}

var _ = Describe("Stamper", func() {
	It("should hand out strictly increasing values", func() {
		s := &Stamper{}
		Expect(s.Last()).To(BeZero())
		Expect(s.Next()).To(Equal(uint64(1)))
		Expect(s.Next()).To(Equal(uint64(2)))
		Expect(s.Last()).To(Equal(uint64(2)))
	})
})

var _ = Describe("LRUVictimFinder", func() {
	var (
		stamper *Stamper
		finder  *LRUVictimFinder
	)

	BeforeEach(func() {
		stamper = &Stamper{}
		finder = NewLRUVictimFinder(stamper)
	})

	It("should pick the lowest invalid way first", func() {
		set := fullSet(1, 2, 3, 4)
		set[1].IsValid = false
		set[3].IsValid = false

		Expect(finder.FindVictim(set)).To(BeIdenticalTo(&set[1]))
	})

	It("should pick the smallest stamp when the set is full", func() {
		set := fullSet(7, 3, 9, 5)

		Expect(finder.FindVictim(set)).To(BeIdenticalTo(&set[1]))
	})

	It("should restamp on visit", func() {
		set := fullSet(0, 0)
		finder.Fill(&set[0])
		finder.Fill(&set[1])
		finder.Visit(&set[0])

		Expect(set[0].Stamp).To(Equal(uint64(3)))
		Expect(finder.FindVictim(set)).To(BeIdenticalTo(&set[1]))
	})
})

var _ = Describe("FIFOVictimFinder", func() {
	var (
		stamper *Stamper
		finder  *FIFOVictimFinder
	)

	BeforeEach(func() {
		stamper = &Stamper{}
		finder = NewFIFOVictimFinder(stamper)
	})

	It("should pick the lowest invalid way first", func() {
		set := fullSet(1, 2)
		set[0].IsValid = false

		Expect(finder.FindVictim(set)).To(BeIdenticalTo(&set[0]))
	})

	It("should not restamp on visit", func() {
		set := fullSet(0, 0)
		finder.Fill(&set[0])
		finder.Fill(&set[1])
		finder.Visit(&set[0])

		Expect(set[0].Stamp).To(Equal(uint64(1)))
		Expect(stamper.Last()).To(Equal(uint64(2)))
		Expect(finder.FindVictim(set)).To(BeIdenticalTo(&set[0]))
	})

	It("should share the stamp sequence with other finders", func() {
		lru := NewLRUVictimFinder(stamper)
		set := fullSet(0, 0)

		finder.Fill(&set[0])
		lru.Fill(&set[1])

		Expect(set[0].Stamp).To(Equal(uint64(1)))
		Expect(set[1].Stamp).To(Equal(uint64(2)))
	})
})
