package clock

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/shim"
)

var _ = Describe("Engine host registrations", func() {
	var (
		mockCtrl  *gomock.Controller
		once      *MockOnceScheduler
		repeating *MockRepeatingScheduler
		frame     *MockFrameScheduler
		clk       *MockClock
		now       time.Time
		timer     *Timer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		once = NewMockOnceScheduler(mockCtrl)
		repeating = NewMockRepeatingScheduler(mockCtrl)
		frame = NewMockFrameScheduler(mockCtrl)
		clk = NewMockClock(mockCtrl)

		now = time.Unix(0, 0)
		clk.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()
		clk.EXPECT().WallClock().DoAndReturn(func() time.Time { return now }).AnyTimes()

		var err error
		timer, err = MakeBuilder().
			WithOnceScheduler(once).
			WithRepeatingScheduler(repeating).
			WithFrameScheduler(frame).
			WithClock(clk).
			WithIDGenerator(idgen.NewSequential()).
			BuildTimer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	noop := func(*Timer) {}

	It("should fail to build without every capability", func() {
		_, err := MakeBuilder().WithOnceScheduler(once).BuildTimer()
		Expect(err).To(MatchError(ErrInvalidConfiguration))
	})

	It("should register nothing while paused", func() {
		Expect(timer.RegisterCallbacks(
			TimerCallback{Kind: KindCheckpoint, TimeMs: 1000, Action: noop},
			TimerCallback{Kind: KindTick, TimeMs: 500, Action: noop},
		)).To(Succeed())
	})

	It("should cancel pending registrations on pause", func() {
		Expect(timer.RegisterCallbacks(
			TimerCallback{Kind: KindCheckpoint, TimeMs: 1000, Action: noop},
		)).To(Succeed())

		once.EXPECT().ScheduleOnce(gomock.Any(), 1000*time.Millisecond).
			Return(shim.Handle(7))
		_, _ = timer.Start()

		now = now.Add(100 * time.Millisecond)
		once.EXPECT().CancelOnce(shim.Handle(7))
		_, _ = timer.Pause()
	})

	It("should re-issue every registration at a new speed", func() {
		Expect(timer.RegisterCallbacks(
			TimerCallback{Kind: KindCheckpoint, TimeMs: 1000, Action: noop},
			TimerCallback{Kind: KindTickReset, TimeMs: 500, Action: noop},
		)).To(Succeed())

		once.EXPECT().ScheduleOnce(gomock.Any(), 1000*time.Millisecond).
			Return(shim.Handle(1))
		repeating.EXPECT().ScheduleRepeating(gomock.Any(), 500*time.Millisecond).
			Return(shim.Handle(2))
		_, _ = timer.Start()

		now = now.Add(200 * time.Millisecond)
		once.EXPECT().CancelOnce(shim.Handle(1))
		repeating.EXPECT().CancelRepeating(shim.Handle(2))
		once.EXPECT().ScheduleOnce(gomock.Any(), 400*time.Millisecond).
			Return(shim.Handle(3))
		repeating.EXPECT().ScheduleRepeating(gomock.Any(), 250*time.Millisecond).
			Return(shim.Handle(4))
		Expect(timer.SetSpeedMultiplier(2)).To(Succeed())
	})

	It("should only re-derive one-shot registrations on a jump", func() {
		Expect(timer.RegisterCallbacks(
			TimerCallback{Kind: KindCheckpoint, TimeMs: 1000, Action: noop},
			TimerCallback{Kind: KindTick, TimeMs: 500, Action: noop},
		)).To(Succeed())

		once.EXPECT().ScheduleOnce(gomock.Any(), 1000*time.Millisecond).
			Return(shim.Handle(1))
		repeating.EXPECT().ScheduleRepeating(gomock.Any(), 500*time.Millisecond).
			Return(shim.Handle(2))
		_, _ = timer.Start()

		now = now.Add(100 * time.Millisecond)
		once.EXPECT().CancelOnce(shim.Handle(1))
		once.EXPECT().ScheduleOnce(gomock.Any(), 700*time.Millisecond).
			Return(shim.Handle(3))
		Expect(timer.AddTime(200, false)).To(Succeed())
	})

	It("should cancel everything on dispose, once", func() {
		Expect(timer.RegisterCallbacks(
			TimerCallback{Kind: KindTick, TimeMs: 100, Action: noop},
		)).To(Succeed())

		repeating.EXPECT().ScheduleRepeating(gomock.Any(), 100*time.Millisecond).
			Return(shim.Handle(5))
		_, _ = timer.Start()

		repeating.EXPECT().CancelRepeating(shim.Handle(5)).Times(1)
		timer.Dispose()
		timer.Dispose()
	})

	It("should ignore a firing from a cancelled registration", func() {
		fired := 0
		Expect(timer.RegisterCallbacks(TimerCallback{
			Kind: KindCheckpoint, TimeMs: 1000,
			Action: func(*Timer) { fired++ },
		})).To(Succeed())

		var stale, current func()
		once.EXPECT().ScheduleOnce(gomock.Any(), 1000*time.Millisecond).
			DoAndReturn(func(fn func(), _ time.Duration) shim.Handle {
				stale = fn
				return 1
			})
		_, _ = timer.Start()

		once.EXPECT().CancelOnce(shim.Handle(1))
		_, _ = timer.Pause()

		once.EXPECT().ScheduleOnce(gomock.Any(), 1000*time.Millisecond).
			DoAndReturn(func(fn func(), _ time.Duration) shim.Handle {
				current = fn
				return 2
			})
		_, _ = timer.Unpause()

		stale()
		Expect(fired).To(BeZero())

		now = now.Add(time.Second)
		current()
		Expect(fired).To(Equal(1))
	})

	It("should defer frame-synced firings to a frame", func() {
		var at int64
		Expect(timer.RegisterCallbacks(TimerCallback{
			Kind: KindCheckpoint, TimeMs: 50, RequireFrameSync: true,
			Action: func(t *Timer) { at = elapsedOf(t) },
		})).To(Succeed())

		var frameFn func()
		frame.EXPECT().ScheduleFrame(gomock.Any()).
			DoAndReturn(func(fn func()) shim.Handle {
				frameFn = fn
				return 9
			})
		Expect(timer.AddTime(100, false)).To(Succeed())
		Expect(at).To(BeZero())

		frameFn()
		Expect(at).To(Equal(int64(100)))
	})

	It("should cancel deferred frame firings on pause", func() {
		fired := false
		Expect(timer.RegisterCallbacks(TimerCallback{
			Kind: KindCheckpoint, TimeMs: 50, RequireFrameSync: true,
			Action: func(*Timer) { fired = true },
		})).To(Succeed())

		var onceFn func()
		once.EXPECT().ScheduleOnce(gomock.Any(), 50*time.Millisecond).
			DoAndReturn(func(fn func(), _ time.Duration) shim.Handle {
				onceFn = fn
				return 1
			})
		_, _ = timer.Start()

		var frameFn func()
		frame.EXPECT().ScheduleFrame(gomock.Any()).
			DoAndReturn(func(fn func()) shim.Handle {
				frameFn = fn
				return 2
			})
		now = now.Add(50 * time.Millisecond)
		onceFn()

		frame.EXPECT().CancelFrame(shim.Handle(2))
		_, _ = timer.Pause()

		frameFn()
		Expect(fired).To(BeFalse())
	})
})
