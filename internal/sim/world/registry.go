package world

import (
	"fmt"

	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
	"gridstead/internal/sim/storage"
	"gridstead/internal/sim/tuning"
)

// Registry owns every placed structure and the occupancy index. All mutation
// of placement state goes through Place and Demolish; nothing else touches
// the occupancy index.
type Registry struct {
	occupancy *grid.OccupancyIndex
	validator Validator
	defaults  tuning.StorageDefaults
	sink      EventSink

	byID    map[string]*Structure
	order   []*Structure // creation order, drives deterministic iteration
	nextNum uint64
}

func NewRegistry(terrain TerrainOracle, defaults tuning.StorageDefaults, sink EventSink) *Registry {
	if sink == nil {
		sink = NopSink{}
	}
	occ := grid.NewOccupancyIndex()
	return &Registry{
		occupancy: occ,
		validator: Validator{Terrain: terrain, Occupancy: occ},
		defaults:  defaults,
		sink:      sink,
		byID:      map[string]*Structure{},
	}
}

// Validate probes a placement without committing it.
func (r *Registry) Validate(def *catalogs.StructureDef, anchor grid.Cell, rot grid.Rotation) PlacementResult {
	return r.validator.Validate(def, anchor, rot)
}

// Place validates and, on success, commits a new structure: the footprint is
// reserved and the record created in the same step, so no observer ever sees
// one without the other.
func (r *Registry) Place(def *catalogs.StructureDef, anchor grid.Cell, rot grid.Rotation, nowTick uint64) (*Structure, PlacementResult) {
	res := r.validator.Validate(def, anchor, rot)
	if !res.OK {
		return nil, res
	}

	id := r.newStructureID()
	if err := r.occupancy.Reserve(res.Cells, id); err != nil {
		// Validate just saw these cells free and we are single-threaded.
		return nil, PlacementResult{Reason: RejectCollision}
	}

	s := &Structure{
		ID:          id,
		Def:         def,
		Anchor:      anchor,
		Rotation:    rot,
		Cells:       res.Cells,
		State:       StateUnderConstruction,
		Input:       storage.New(r.inputCapacity(def)),
		Output:      storage.New(r.outputCapacity(def)),
		CreatedTick: nowTick,
	}
	r.byID[id] = s
	r.order = append(r.order, s)

	r.sink.StructurePlaced(nowTick, s)
	return s, res
}

// Demolish removes a structure. Cells are released before the record is
// dropped; the reverse order would leave dangling occupancy on a partial
// failure.
func (r *Registry) Demolish(id string, nowTick uint64) bool {
	s, ok := r.byID[id]
	if !ok {
		return false
	}
	r.occupancy.Release(s.Cells)
	delete(r.byID, id)
	for i, cur := range r.order {
		if cur == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.sink.StructureDemolished(nowTick, s)
	return true
}

func (r *Registry) Get(id string) *Structure { return r.byID[id] }
func (r *Registry) Len() int                 { return len(r.order) }

// All returns structures in creation order. Callers must not mutate the
// slice.
func (r *Registry) All() []*Structure { return r.order }

// AllOperational returns the structures that finished construction, in
// creation order.
func (r *Registry) AllOperational() []*Structure {
	out := make([]*Structure, 0, len(r.order))
	for _, s := range r.order {
		if s.Operational() {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Occupancy() *grid.OccupancyIndex { return r.occupancy }

func (r *Registry) inputCapacity(def *catalogs.StructureDef) int {
	if def.Storage != nil {
		return def.Storage.InputCapacity
	}
	return r.defaults.DefaultInputCapacity
}

func (r *Registry) outputCapacity(def *catalogs.StructureDef) int {
	if def.Storage != nil {
		return def.Storage.OutputCapacity
	}
	return r.defaults.DefaultOutputCapacity
}

func (r *Registry) newStructureID() string {
	r.nextNum++
	return fmt.Sprintf("B%06d", r.nextNum)
}

// Adopt installs a structure restored from a snapshot, reserving its cells.
// Used only during import, before the world loop starts.
func (r *Registry) Adopt(s *Structure) error {
	if _, dup := r.byID[s.ID]; dup {
		return fmt.Errorf("duplicate structure id %s", s.ID)
	}
	if err := r.occupancy.Reserve(s.Cells, s.ID); err != nil {
		return fmt.Errorf("adopt %s: %w", s.ID, err)
	}
	r.byID[s.ID] = s
	r.order = append(r.order, s)
	return nil
}

// NextNum and SetNextNum expose the id counter for snapshots.
func (r *Registry) NextNum() uint64     { return r.nextNum }
func (r *Registry) SetNextNum(n uint64) { r.nextNum = n }
