package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	ctxs []HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

var _ = Describe("HookableBase", func() {
	var (
		domain *HookableBase
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = &HookableBase{}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke hooks in registration order", func() {
		order := []int{}
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 1) }))
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		domain.InvokeHook(HookCtx{Pos: pos})

		Expect(order).To(Equal([]int{1, 2}))
		Expect(domain.NumHooks()).To(Equal(2))
	})

	It("should pass the context through", func() {
		hook := &countingHook{}
		domain.AcceptHook(hook)

		domain.InvokeHook(HookCtx{Pos: pos, Item: 1, Detail: "detail"})

		Expect(hook.ctxs).To(HaveLen(1))
		Expect(hook.ctxs[0].Pos).To(BeIdenticalTo(pos))
		Expect(hook.ctxs[0].Item).To(Equal(1))
		Expect(hook.ctxs[0].Detail).To(Equal("detail"))
	})

	It("should panic on duplicated hook", func() {
		hook := &countingHook{}
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})

	It("should list registered hooks", func() {
		hook := &countingHook{}
		domain.AcceptHook(hook)

		Expect(domain.Hooks()).To(ConsistOf(hook))
	})
})
