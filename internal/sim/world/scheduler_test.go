package world

import (
	"testing"

	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
)

func newBakery(t *testing.T, c *catalogs.Catalogs) (*Registry, *Scheduler, *Structure, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), sink)
	sched := NewScheduler(reg, sink)
	s := mustPlace(t, reg, c.Structures.Lookup("BAKERY"), grid.Cell{X: 0, Y: 0}, grid.Rot0)
	s.State = StateOperational
	s.Progress = 1
	return reg, sched, s, sink
}

func TestProduction_CycleConsumesAndProduces(t *testing.T) {
	c := testCatalogs(t)
	_, sched, s, sink := newBakery(t, c)
	grain := c.Resources.Index["GRAIN"]
	food := c.Resources.Index["FOOD"]

	s.Input.Add(grain, 5)
	sched.Tick(0.1, 1)

	// floor(1 * 1.2 * 0.95) = 1 food per cycle, 2 grain consumed.
	if got := s.Input.Amount(grain); got != 3 {
		t.Fatalf("grain = %d, want 3", got)
	}
	if got := s.Output.Amount(food); got != 1 {
		t.Fatalf("food = %d, want 1", got)
	}
	if s.CycleCount != 1 {
		t.Fatalf("cycle count = %d, want 1", s.CycleCount)
	}
	if s.LastProductionTick != 1 {
		t.Fatalf("last production tick = %d, want 1", s.LastProductionTick)
	}
	if len(sink.cycles) != 1 {
		t.Fatalf("cycle events = %d, want 1", len(sink.cycles))
	}
}

func TestProduction_InsufficientInputSkipsCycle(t *testing.T) {
	c := testCatalogs(t)
	_, sched, s, sink := newBakery(t, c)
	grain := c.Resources.Index["GRAIN"]
	food := c.Resources.Index["FOOD"]

	s.Input.Add(grain, 1) // needs 2
	sched.Tick(0.1, 1)

	if got := s.Input.Amount(grain); got != 1 {
		t.Fatalf("grain = %d, want 1 (untouched)", got)
	}
	if got := s.Output.Amount(food); got != 0 {
		t.Fatalf("food = %d, want 0", got)
	}
	if s.CycleCount != 0 || len(sink.cycles) != 0 {
		t.Fatalf("cycle ran: count=%d events=%d", s.CycleCount, len(sink.cycles))
	}
}

func TestProduction_FullOutputAppliesBackpressure(t *testing.T) {
	c := testCatalogs(t)
	_, sched, s, _ := newBakery(t, c)
	grain := c.Resources.Index["GRAIN"]
	food := c.Resources.Index["FOOD"]

	s.Input.Add(grain, 10)
	s.Output.Add(food, 50) // default output capacity

	sched.Tick(0.1, 1)

	// All-or-nothing: the full output must not cost any input.
	if got := s.Input.Amount(grain); got != 10 {
		t.Fatalf("grain = %d, want 10 (untouched)", got)
	}
	if s.CycleCount != 0 {
		t.Fatalf("cycle count = %d, want 0", s.CycleCount)
	}

	// Draining the output unblocks production on a later tick.
	s.Output.Remove(food, 10)
	sched.Tick(0.1, 2)
	if s.CycleCount != 1 {
		t.Fatalf("cycle count after drain = %d, want 1", s.CycleCount)
	}
}

func TestProduction_RunsEveryTickWhileSupplied(t *testing.T) {
	c := testCatalogs(t)
	_, sched, s, _ := newBakery(t, c)
	grain := c.Resources.Index["GRAIN"]
	food := c.Resources.Index["FOOD"]

	s.Input.Add(grain, 6)
	for tick := uint64(1); tick <= 5; tick++ {
		sched.Tick(0.1, tick)
	}

	// Three cycles exhaust the grain; the remaining ticks skip.
	if s.CycleCount != 3 {
		t.Fatalf("cycle count = %d, want 3", s.CycleCount)
	}
	if got := s.Input.Amount(grain); got != 0 {
		t.Fatalf("grain = %d, want 0", got)
	}
	if got := s.Output.Amount(food); got != 3 {
		t.Fatalf("food = %d, want 3", got)
	}
	if s.LastProductionTick != 3 {
		t.Fatalf("last production tick = %d, want 3", s.LastProductionTick)
	}
}

func TestConstruction_ProgressIsMonotonicAndTransitionsOnce(t *testing.T) {
	c := testCatalogs(t)
	sink := &recordSink{}
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), sink)
	sched := NewScheduler(reg, sink)

	// FARM takes 20 seconds; at dt=4 that is 5 ticks.
	s := mustPlace(t, reg, c.Structures.Lookup("FARM"), grid.Cell{X: 0, Y: 0}, grid.Rot0)

	last := 0.0
	for tick := uint64(0); tick < 4; tick++ {
		sched.Tick(4.0, tick)
		if s.Progress < last {
			t.Fatalf("progress decreased: %v -> %v", last, s.Progress)
		}
		last = s.Progress
		if s.State != StateUnderConstruction {
			t.Fatalf("operational too early at tick %d (progress %v)", tick, s.Progress)
		}
	}

	sched.Tick(4.0, 4)
	if s.State != StateOperational || s.Progress != 1 {
		t.Fatalf("state=%s progress=%v after full construction time", s.State, s.Progress)
	}
	if len(sink.operational) != 1 {
		t.Fatalf("operational events = %v, want exactly one", sink.operational)
	}
	// The completion tick does not also run a production cycle.
	if s.CycleCount != 0 {
		t.Fatalf("cycle count = %d on completion tick, want 0", s.CycleCount)
	}

	// Further ticks never emit the transition again.
	sched.Tick(4.0, 5)
	sched.Tick(4.0, 6)
	if len(sink.operational) != 1 {
		t.Fatalf("operational events = %v after extra ticks", sink.operational)
	}
	// FARM has no inputs, so production starts on the next tick.
	if s.CycleCount != 2 {
		t.Fatalf("cycle count = %d, want 2", s.CycleCount)
	}
}

func TestConstruction_OvershootClampsToOne(t *testing.T) {
	c := testCatalogs(t)
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), nil)
	sched := NewScheduler(reg, nil)
	s := mustPlace(t, reg, c.Structures.Lookup("SHELTER"), grid.Cell{X: 0, Y: 0}, grid.Rot0)

	sched.Tick(100.0, 0) // SHELTER takes 10 seconds
	if s.Progress != 1 {
		t.Fatalf("progress = %v, want exactly 1", s.Progress)
	}
	if s.State != StateOperational {
		t.Fatalf("state = %s", s.State)
	}
}

func TestProduction_OverflowIsDiscardedAndReported(t *testing.T) {
	c := testCatalogs(t)
	sink := &recordSink{}
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), sink)
	sched := NewScheduler(reg, sink)
	grain := c.Resources.Index["GRAIN"]

	// A rate above 1 produces more than the per-output space probe
	// requires, so a nearly full store passes the check and then clamps.
	def := &catalogs.StructureDef{
		ID:                  "TEST_OVERPRODUCER",
		Size:                grid.Size{W: 1, H: 1},
		ConstructionSeconds: 1,
		Rotatable:           true,
		Production: &catalogs.ProductionSpec{
			Outputs:    []catalogs.ResourceAmount{{Resource: grain, Amount: 1}},
			Rate:       3,
			Efficiency: 1,
		},
		Storage: &catalogs.StorageSpec{InputCapacity: 0, OutputCapacity: 10},
	}
	s := mustPlace(t, reg, def, grid.Cell{X: 0, Y: 0}, grid.Rot0)
	s.State = StateOperational
	s.Progress = 1

	s.Output.Add(grain, 8) // 2 free, cycle wants to add 3
	sched.Tick(0.1, 1)

	if got := s.Output.Amount(grain); got != 10 {
		t.Fatalf("grain = %d, want 10 (clamped at capacity)", got)
	}
	if s.CycleCount != 1 {
		t.Fatalf("cycle count = %d, want 1", s.CycleCount)
	}
	if len(sink.cycles) != 1 {
		t.Fatalf("cycle events = %d, want 1", len(sink.cycles))
	}
	rep := sink.cycles[0]
	if len(rep.Produced) != 1 || rep.Produced[0].Amount != 2 {
		t.Fatalf("produced = %+v, want 2 grain", rep.Produced)
	}
	if len(rep.Discarded) != 1 || rep.Discarded[0].Amount != 1 {
		t.Fatalf("discarded = %+v, want 1 grain", rep.Discarded)
	}
}
