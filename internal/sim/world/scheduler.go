package world

import (
	"math"

	"gridstead/internal/sim/catalogs"
)

// Scheduler advances the simulation by discrete ticks. One tick walks the
// registry once in creation order; each structure either advances
// construction or attempts a single production cycle, never both in the same
// tick. A structure that completes construction starts producing on the
// following tick.
type Scheduler struct {
	registry *Registry
	sink     EventSink
}

func NewScheduler(r *Registry, sink EventSink) *Scheduler {
	if sink == nil {
		sink = NopSink{}
	}
	return &Scheduler{registry: r, sink: sink}
}

// Tick advances every structure by dt seconds of simulated time.
func (sc *Scheduler) Tick(dt float64, nowTick uint64) {
	for _, s := range sc.registry.All() {
		if s.State == StateUnderConstruction {
			sc.advanceConstruction(s, dt, nowTick)
			continue
		}
		if s.Def.Production != nil {
			sc.runCycle(s, nowTick)
		}
	}
}

func (sc *Scheduler) advanceConstruction(s *Structure, dt float64, nowTick uint64) {
	s.Progress += dt / s.Def.ConstructionSeconds
	if s.Progress < 1 {
		return
	}
	s.Progress = 1
	// One-shot transition at the tick where progress first reaches 1.
	s.State = StateOperational
	sc.sink.StructureBecameOperational(nowTick, s)
}

// runCycle attempts one all-or-nothing production cycle. If any input is
// short or any output lacks room, nothing is consumed or produced this tick;
// the cycle simply waits for a later tick.
func (sc *Scheduler) runCycle(s *Structure, nowTick uint64) {
	spec := s.Def.Production
	for _, in := range spec.Inputs {
		if !s.Input.Has(in.Resource, in.Amount) {
			return
		}
	}
	for _, out := range spec.Outputs {
		if !s.Output.CanAccept(out.Amount) {
			return
		}
	}

	report := CycleReport{Consumed: make([]catalogs.ResourceAmount, 0, len(spec.Inputs))}
	for _, in := range spec.Inputs {
		s.Input.Remove(in.Resource, in.Amount)
		report.Consumed = append(report.Consumed, in)
	}
	for _, out := range spec.Outputs {
		n := int(math.Floor(float64(out.Amount) * spec.Rate * spec.Efficiency))
		if n <= 0 {
			continue
		}
		added := s.Output.Add(out.Resource, n)
		if added > 0 {
			report.Produced = append(report.Produced, catalogs.ResourceAmount{Resource: out.Resource, Amount: added})
		}
		if added < n {
			report.Discarded = append(report.Discarded, catalogs.ResourceAmount{Resource: out.Resource, Amount: n - added})
		}
	}

	s.CycleCount++
	s.LastProductionTick = nowTick
	sc.sink.ProductionCycleCompleted(nowTick, s, report)
}
