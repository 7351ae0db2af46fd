package zone_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/sim"
	"github.com/xiaonanln/gozone/engine/zone"
)

const notifyTimeout = time.Second

// notifyRecorder counts enter/leave notifications of one zone
type notifyRecorder struct {
	enters, leaves int32
	enterCh        chan common.EntityID
	leaveCh        chan common.EntityID
}

func recordNotifies(z *zone.Zone) *notifyRecorder {
	r := &notifyRecorder{
		enterCh: make(chan common.EntityID, 16),
		leaveCh: make(chan common.EntityID, 16),
	}
	z.OnEnter().Connect(func(e common.EntityID) {
		atomic.AddInt32(&r.enters, 1)
		r.enterCh <- e
	})
	z.OnLeave().Connect(func(e common.EntityID) {
		atomic.AddInt32(&r.leaves, 1)
		r.leaveCh <- e
	})
	return r
}

func (r *notifyRecorder) waitEnter(t *testing.T) common.EntityID {
	t.Helper()
	select {
	case e := <-r.enterCh:
		return e
	case <-time.After(notifyTimeout):
		t.Fatalf("no enter notification")
		return ""
	}
}

func (r *notifyRecorder) waitLeave(t *testing.T) common.EntityID {
	t.Helper()
	select {
	case e := <-r.leaveCh:
		return e
	case <-time.After(notifyTimeout):
		t.Fatalf("no leave notification")
		return ""
	}
}

// settle gives in-flight notification goroutines time to land before counting
func (r *notifyRecorder) settle() {
	time.Sleep(50 * time.Millisecond)
}

func (r *notifyRecorder) enterCount() int32 { return atomic.LoadInt32(&r.enters) }
func (r *notifyRecorder) leaveCount() int32 { return atomic.LoadInt32(&r.leaves) }

func newTestZone(t *testing.T, w *sim.World, volume common.VolumeID, filter zone.Filter) *zone.Zone {
	t.Helper()
	z, err := zone.NewRegistry().Create(w, volume, filter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return z
}

func TestCreateAutoEnables(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")

	z := newTestZone(t, w, "v1", nil)
	assert.Equal(t, z.GetState(), zone.StateActive)
	assert.Equal(t, z.Volume(), common.VolumeID("v1"))
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestCreateInvalidArgs(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	r := zone.NewRegistry()

	_, err := r.Create(nil, "v1", nil)
	assert.T(t, err != nil, "nil world should fail")
	_, err = r.Create(w, "", nil)
	assert.T(t, err != nil, "nil volume should fail")
	_, err = r.Create(w, "no-such-volume", nil)
	assert.T(t, err != nil, "invalid volume should fail")
}

func TestEnterAndLeave(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "S")
	assert.Equal(t, r.waitEnter(t), common.EntityID("E"))
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})

	w.EndContact("v1", "S")
	assert.Equal(t, r.waitLeave(t), common.EntityID("E"))
	assert.Equal(t, len(z.GetMembers()), 0)

	r.settle()
	assert.Equal(t, r.enterCount(), int32(1))
	assert.Equal(t, r.leaveCount(), int32(1))
}

func TestMultiSurfaceAggregation(t *testing.T) {
	// E touches through S1 and S2: one enter, member survives losing S1,
	// one leave when S2 ends
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S1", "S2")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "S1")
	w.BeginContact("v1", "S2")
	r.waitEnter(t)
	r.settle()
	assert.Equal(t, r.enterCount(), int32(1))
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})

	w.EndContact("v1", "S1")
	r.settle()
	assert.Equal(t, r.leaveCount(), int32(0))
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})

	w.EndContact("v1", "S2")
	assert.Equal(t, r.waitLeave(t), common.EntityID("E"))
	r.settle()
	assert.Equal(t, r.leaveCount(), int32(1))
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestReEnter(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "S")
	r.waitEnter(t)
	w.EndContact("v1", "S")
	r.waitLeave(t)
	w.BeginContact("v1", "S")
	r.waitEnter(t)

	r.settle()
	assert.Equal(t, r.enterCount(), int32(2))
	assert.Equal(t, r.leaveCount(), int32(1))
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})
}

func TestFilterPerSurface(t *testing.T) {
	// filter rejects S1, accepts S2: membership only through S2
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S1", "S2")

	z := newTestZone(t, w, "v1", func(entity common.EntityID, surface common.SurfaceID) bool {
		return surface != "S1"
	})
	r := recordNotifies(z)

	w.BeginContact("v1", "S1")
	r.settle()
	assert.Equal(t, r.enterCount(), int32(0))
	assert.Equal(t, len(z.GetMembers()), 0)

	w.BeginContact("v1", "S2")
	r.waitEnter(t)
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})

	// S1 is still in contact but never counted, so ending S2 removes E
	w.EndContact("v1", "S2")
	assert.Equal(t, r.waitLeave(t), common.EntityID("E"))
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestPanickingFilterRejects(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")

	z := newTestZone(t, w, "v1", func(common.EntityID, common.SurfaceID) bool {
		panic("filter panic")
	})
	r := recordNotifies(z)

	w.BeginContact("v1", "S")
	r.settle()
	assert.Equal(t, r.enterCount(), int32(0))
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestResolutionMissesIgnored(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("dead", "SD")
	w.KillEntity("dead")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "orphan-surface") // no owning entity
	w.BeginContact("v1", "SD")             // dead owner
	r.settle()
	assert.Equal(t, r.enterCount(), int32(0))
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestInitialScanIsSilent(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E1", "S1")
	w.AddEntity("E2", "S2")
	w.BeginContact("v1", "S1")
	w.BeginContact("v1", "S2")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)
	r.settle()

	assert.Equal(t, r.enterCount(), int32(0))
	assert.Equal(t, len(z.GetMembers()), 2)
}

func TestDeathRemovesMember(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S1", "S2")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "S1")
	w.BeginContact("v1", "S2")
	r.waitEnter(t)

	// death removes E even though S1/S2 never ended
	w.KillEntity("E")
	assert.Equal(t, r.waitLeave(t), common.EntityID("E"))
	assert.Equal(t, len(z.GetMembers()), 0)

	// stale contact-end after death is a no-op
	w.EndContact("v1", "S1")
	w.EndContact("v1", "S2")
	r.settle()
	assert.Equal(t, r.leaveCount(), int32(1))
}

func TestDisableClearsSilently(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	w.BeginContact("v1", "S")
	r.waitEnter(t)

	z.Disable()
	assert.Equal(t, z.GetState(), zone.StateSleep)
	assert.T(t, z.GetMembers() == nil, "members unavailable while sleeping")
	r.settle()
	assert.Equal(t, r.leaveCount(), int32(0)) // abrupt clear, no leave

	// contacts while sleeping are not observed
	w.EndContact("v1", "S")
	w.BeginContact("v1", "S")

	// re-enabling rediscovers the overlap without announcing it
	z.Enable()
	assert.Equal(t, z.GetState(), zone.StateActive)
	r.settle()
	assert.Equal(t, r.enterCount(), int32(1))
	assert.Equal(t, z.GetMembers(), []common.EntityID{"E"})
}

func TestStateDiagnosticsNoOps(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")

	z := newTestZone(t, w, "v1", nil)
	z.Enable() // already active: no-op
	assert.Equal(t, z.GetState(), zone.StateActive)

	z.Disable()
	z.Disable() // not active: no-op
	assert.Equal(t, z.GetState(), zone.StateSleep)

	z.Destroy()
	z.Destroy() // already dead: no-op
	assert.Equal(t, z.GetState(), zone.StateDead)
	z.Enable() // dead is terminal
	assert.Equal(t, z.GetState(), zone.StateDead)
	z.Disable()
	assert.Equal(t, z.GetState(), zone.StateDead)
	assert.T(t, z.GetMembers() == nil, "members unavailable when dead")
}

func TestDestroy(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")
	r := zone.NewRegistry()

	z, err := r.Create(w, "v1", nil)
	assert.Equal(t, err, nil)
	rec := recordNotifies(z)

	w.BeginContact("v1", "S")
	rec.waitEnter(t)

	// a pending waiter must be cancelled by Destroy
	waitDone := make(chan bool, 1)
	go func() {
		_, ok := z.OnLeave().Wait(0)
		waitDone <- ok
	}()
	time.Sleep(20 * time.Millisecond)

	z.Destroy()
	assert.Equal(t, z.GetState(), zone.StateDead)
	assert.T(t, r.Get("v1") == nil, "destroyed zone should leave the registry")

	select {
	case ok := <-waitDone:
		assert.T(t, !ok, "cancelled waiter should get null")
	case <-time.After(notifyTimeout):
		t.Fatalf("waiter not cancelled by Destroy")
	}
	rec.settle()
	assert.Equal(t, rec.leaveCount(), int32(0)) // destroy clears silently

	// host events after destroy change nothing
	w.EndContact("v1", "S")
	w.BeginContact("v1", "S")
	assert.Equal(t, z.GetState(), zone.StateDead)
}

func TestMemberOrderStaysDense(t *testing.T) {
	// removing a mid-list member must not desynchronize later removals
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("A", "SA")
	w.AddEntity("B", "SB")
	w.AddEntity("C", "SC")
	w.AddEntity("D", "SD")

	z := newTestZone(t, w, "v1", nil)
	r := recordNotifies(z)

	for _, s := range []common.SurfaceID{"SA", "SB", "SC", "SD"} {
		w.BeginContact("v1", s)
		r.waitEnter(t)
	}
	assert.Equal(t, z.GetMembers(), []common.EntityID{"A", "B", "C", "D"})

	w.EndContact("v1", "SB")
	r.waitLeave(t)
	assert.Equal(t, z.GetMembers(), []common.EntityID{"A", "C", "D"})

	w.EndContact("v1", "SC")
	r.waitLeave(t)
	assert.Equal(t, z.GetMembers(), []common.EntityID{"A", "D"})

	w.EndContact("v1", "SA")
	r.waitLeave(t)
	assert.Equal(t, z.GetMembers(), []common.EntityID{"D"})

	w.EndContact("v1", "SD")
	r.waitLeave(t)
	assert.Equal(t, len(z.GetMembers()), 0)
}

func TestOnEnterWait(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")

	z := newTestZone(t, w, "v1", nil)

	got := make(chan common.EntityID, 1)
	go func() {
		e, ok := z.OnEnter().Wait(notifyTimeout)
		if ok {
			got <- e
		}
		close(got)
	}()
	time.Sleep(20 * time.Millisecond)

	w.BeginContact("v1", "S")
	select {
	case e, ok := <-got:
		assert.T(t, ok, "waiter should see the enter")
		assert.Equal(t, e, common.EntityID("E"))
	case <-time.After(notifyTimeout):
		t.Fatalf("OnEnter waiter not resumed")
	}
}
