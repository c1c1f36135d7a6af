package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Builder", func() {
	It("should derive the number of sets", func() {
		m, err := cache.MakeBuilder().
			WithByteSize(32 * 1024).
			WithWayAssociativity(8).
			WithReplacementPolicy(cache.FIFO).
			WithWritePolicy(cache.WriteBack).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(m.NumSets()).To(Equal(64))
		Expect(m.WayAssociativity()).To(Equal(8))
		Expect(m.ReplacementPolicy()).To(Equal(cache.FIFO))
		Expect(m.WritePolicy()).To(Equal(cache.WriteBack))
		Expect(m.Config().BlockSize).To(Equal(cache.BlockSize))
	})

	It("should start empty", func() {
		m, err := cache.New(1024, 2, cache.LRU, cache.WriteThrough)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Stats()).To(BeZero())
		Expect(m.LastStamp()).To(BeZero())

		for setID := 0; setID < m.NumSets(); setID++ {
			for _, b := range m.Blocks(setID) {
				Expect(b.IsValid).To(BeFalse())
				Expect(b.IsDirty).To(BeFalse())
				Expect(b.Tag).To(BeZero())
				Expect(b.Stamp).To(BeZero())
			}
		}
	})

	It("should build a fully associative cache", func() {
		m, err := cache.New(512, 8, cache.LRU, cache.WriteThrough)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.NumSets()).To(Equal(1))
	})

	DescribeTable("should reject invalid geometry",
		func(size, assoc int) {
			_, err := cache.New(size, assoc, cache.LRU, cache.WriteThrough)
			Expect(err).To(MatchError(cache.ErrInvalidGeometry))
		},
		Entry("zero size", 0, 1),
		Entry("negative size", -1024, 1),
		Entry("zero associativity", 1024, 0),
		Entry("negative associativity", 1024, -2),
		Entry("size smaller than a set", 64, 2),
		Entry("size not a multiple of block size", 100, 1),
		Entry("size not a multiple of set size", 192, 2),
	)

	It("should reject unknown policies", func() {
		_, err := cache.New(1024, 1, cache.ReplacementPolicy(7), cache.WriteBack)
		Expect(err).To(MatchError(cache.ErrInvalidPolicy))

		_, err = cache.New(1024, 1, cache.LRU, cache.WritePolicy(7))
		Expect(err).To(MatchError(cache.ErrInvalidPolicy))
	})
})

var _ = Describe("ParseOp", func() {
	DescribeTable("should accept both cases",
		func(code string, expected cache.Op) {
			op, err := cache.ParseOp(code)
			Expect(err).NotTo(HaveOccurred())
			Expect(op).To(Equal(expected))
		},
		Entry("R", "R", cache.OpRead),
		Entry("r", "r", cache.OpRead),
		Entry("W", "W", cache.OpWrite),
		Entry("w", "w", cache.OpWrite),
	)

	It("should reject other codes", func() {
		for _, code := range []string{"", "X", "RW", "0"} {
			_, err := cache.ParseOp(code)
			Expect(err).To(MatchError(cache.ErrInvalidOp))
		}
	})
})

var _ = Describe("Statistics", func() {
	It("should report a zero miss ratio without accesses", func() {
		Expect(cache.Statistics{}.MissRatio()).To(BeZero())
	})

	It("should compute the miss ratio", func() {
		s := cache.Statistics{Hits: 3, Misses: 1}
		Expect(s.Accesses()).To(Equal(uint64(4)))
		Expect(s.MissRatio()).To(BeNumerically("~", 0.25))
	})
})
