package clock

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("plan", func() {
	DescribeTable("checkpoints",
		func(target, elapsed, speed float64, expected step) {
			in := planInput{kind: KindCheckpoint, timeMs: target}
			Expect(plan(in, elapsed, speed)).To(Equal(expected))
		},
		Entry("ahead", 1000.0, 200.0, 1.0,
			step{kind: stepOnce, delayMs: 800, eventType: EventCheckpoint}),
		Entry("ahead at double speed", 1000.0, 200.0, 2.0,
			step{kind: stepOnce, delayMs: 400, eventType: EventCheckpoint}),
		Entry("reached", 1000.0, 1000.0, 1.0, step{kind: stepSkip}),
		Entry("passed", 1000.0, 1500.0, 1.0, step{kind: stepSkip}),
	)

	It("should plan checkpoint-once like a checkpoint", func() {
		in := planInput{kind: KindCheckpointOnce, timeMs: 300}
		Expect(plan(in, 100, 1)).To(Equal(
			step{kind: stepOnce, delayMs: 200, eventType: EventCheckpoint}))
	})

	It("should repeat tick-reset at the scaled interval", func() {
		in := planInput{kind: KindTickReset, timeMs: 1000, lastExecutionMs: 700}
		Expect(plan(in, 900, 4)).To(Equal(
			step{kind: stepRepeating, intervalMs: 250}))
	})

	It("should drive zero-interval frame-synced ticks from frames", func() {
		for _, k := range []Kind{KindTick, KindTickReset} {
			in := planInput{kind: k, requireFrameSync: true}
			Expect(plan(in, 123, 1).kind).To(Equal(stepFrameLoop))
		}
	})

	DescribeTable("ticks",
		func(in planInput, elapsed, speed float64, expected step) {
			in.kind = KindTick
			Expect(plan(in, elapsed, speed)).To(Equal(expected))
		},
		Entry("fresh registration",
			planInput{timeMs: 1000}, 0.0, 1.0,
			step{kind: stepRepeating, intervalMs: 1000}),
		Entry("registered mid-run",
			planInput{timeMs: 1000, registeredAt: 300, lastExecutionMs: 300}, 300.0, 1.0,
			step{kind: stepRepeating, intervalMs: 1000}),
		Entry("resumed inside an interval",
			planInput{timeMs: 1000, lastExecutionMs: 1000}, 1400.0, 1.0,
			step{
				kind:       stepOnce,
				delayMs:    600,
				intervalMs: 1000,
				eventType:  EventTick,
				thenRepeat: true,
			}),
		Entry("resumed inside an interval at double speed",
			planInput{timeMs: 1000, lastExecutionMs: 1000}, 1400.0, 2.0,
			step{
				kind:       stepOnce,
				delayMs:    300,
				intervalMs: 500,
				eventType:  EventTick,
				thenRepeat: true,
			}),
		Entry("aligned to the registration anchor",
			planInput{timeMs: 1000, registeredAt: 100, lastExecutionMs: 2100}, 2500.0, 1.0,
			step{
				kind:       stepOnce,
				delayMs:    600,
				intervalMs: 1000,
				eventType:  EventTick,
				thenRepeat: true,
			}),
		Entry("jumped past the ideal target",
			planInput{timeMs: 1000, lastExecutionMs: 1000}, 2500.0, 1.0,
			step{kind: stepRepeating, intervalMs: 1000}),
		Entry("drift compensation disabled",
			planInput{timeMs: 1000, lastExecutionMs: 1000, disableDriftCompensation: true},
			1400.0, 1.0,
			step{kind: stepRepeating, intervalMs: 1000}),
	)

	It("should skip unknown kinds", func() {
		Expect(plan(planInput{kind: "bogus", timeMs: 10}, 0, 1).kind).
			To(Equal(stepSkip))
	})
})
