package tracing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/tracing"
)

var _ = Describe("AccessTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *tracing.AccessTracer
		model    *cache.Model
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(tracing.AccessTable, tracing.AccessEntry{})
		tracer = tracing.NewAccessTracer(recorder)

		var err error
		model, err = cache.New(64, 1, cache.LRU, cache.WriteBack)
		Expect(err).NotTo(HaveOccurred())
		model.AcceptHook(tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record every access in order", func() {
		gomock.InOrder(
			recorder.EXPECT().InsertData(tracing.AccessTable, tracing.AccessEntry{
				Seq:      1,
				Op:       "W",
				Address:  "0x10",
				BlockTag: 0,
				SetID:    0,
				WayID:    0,
			}),
			recorder.EXPECT().InsertData(tracing.AccessTable, tracing.AccessEntry{
				Seq:        2,
				Op:         "R",
				Address:    "0x40",
				BlockTag:   1,
				Evicted:    true,
				EvictedTag: 0,
				WroteBack:  true,
			}),
			recorder.EXPECT().InsertData(tracing.AccessTable, tracing.AccessEntry{
				Seq:      3,
				Op:       "R",
				Address:  "0x44",
				BlockTag: 1,
				Hit:      true,
			}),
		)

		model.Access(cache.OpWrite, 0x10)
		model.Access(cache.OpRead, 0x40)
		model.Access(cache.OpRead, 0x44)

		Expect(tracer.NumRecorded()).To(Equal(uint64(3)))
	})
})

var _ = Describe("RecordSummary", func() {
	It("should write the configuration and counters", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		recorder := NewMockDataRecorder(mockCtrl)

		model, err := cache.New(1024, 2, cache.FIFO, cache.WriteThrough)
		Expect(err).NotTo(HaveOccurred())
		model.Access(cache.OpRead, 0)
		model.Access(cache.OpWrite, 0)

		recorder.EXPECT().CreateTable(tracing.SummaryTable, tracing.SummaryEntry{})
		recorder.EXPECT().InsertData(tracing.SummaryTable, tracing.SummaryEntry{
			ByteSize:          1024,
			WayAssociativity:  2,
			BlockSize:         64,
			NumSets:           8,
			ReplacementPolicy: "FIFO",
			WritePolicy:       "WriteThrough",
			Hits:              1,
			Misses:            1,
			Reads:             1,
			Writes:            1,
			MissRatio:         0.5,
		})

		tracing.RecordSummary(recorder, model.Config(), model.Stats())
	})
})
