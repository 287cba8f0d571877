package core

import (
	"context"
	"math"
	"time"

	"github.com/WeiliangChenOIST/FORK-STEPS/internal/logging"
	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

// Recorder receives solver metrics. It is satisfied by
// observability.SolverCollector; the core never depends on a metrics
// library directly.
type Recorder interface {
	EventApplied(totalRate float64)
	ClockAdvanced(simTime float64)
	StepDuration(seconds float64)
}

// State is one exact single-worker simulation: the geometry elements, the
// kinetic processes attached to them, the dependency graph, the scheduler,
// and the simulation clock. It is strictly single-threaded: SELECT and
// APPLY never overlap, and an event is always applied to completion before
// the next draw.
type State struct {
	def *model.Statedef
	rng rng.Source

	log     logging.Logger
	metrics Recorder

	time   float64
	nsteps uint64

	tets    []*Tet
	tris    []*Tri
	comps   map[string]*Comp
	patches map[string]*Patch

	nextElem ElemID

	kprocs []KProc
	graph  *DepGraph
	sched  *Scheduler

	setup bool
}

// NewState builds an empty simulation state against a frozen model
// definition and an opaque uniform random source.
func NewState(def *model.Statedef, src rng.Source) (*State, error) {
	if def == nil || !def.Frozen() {
		return nil, configErrorf("state requires a frozen statedef")
	}
	if src == nil {
		return nil, configErrorf("state requires a random source")
	}
	return &State{
		def:     def,
		rng:     src,
		log:     logging.Noop(),
		comps:   make(map[string]*Comp),
		patches: make(map[string]*Patch),
	}, nil
}

// SetLogger injects a structured logger; the default drops all logs.
func (s *State) SetLogger(l logging.Logger) {
	if l == nil {
		l = logging.Noop()
	}
	s.log = l
}

// SetRecorder injects a metrics recorder; nil disables recording.
func (s *State) SetRecorder(r Recorder) { s.metrics = r }

// Def returns the model definition this state was built from.
func (s *State) Def() *model.Statedef { return s.def }

// ---- Geometry construction ----

// AddComp instantiates the compartment at index cidx of the statedef.
func (s *State) AddComp(cidx int) (*Comp, error) {
	if s.setup {
		return nil, configErrorf("cannot add geometry after setup")
	}
	if cidx < 0 || cidx >= s.def.CountComps() {
		return nil, configErrorf("undefined compartment index %d", cidx)
	}
	def := s.def.Comp(cidx)
	if _, dup := s.comps[def.Name]; dup {
		return nil, configErrorf("compartment %q already instantiated", def.Name)
	}
	c := &Comp{def: def}
	s.comps[def.Name] = c
	return c, nil
}

// AddPatch instantiates the patch at index pidx of the statedef.
func (s *State) AddPatch(pidx int) (*Patch, error) {
	if s.setup {
		return nil, configErrorf("cannot add geometry after setup")
	}
	def := s.def.Patch(pidx)
	if _, dup := s.patches[def.Name]; dup {
		return nil, configErrorf("patch %q already instantiated", def.Name)
	}
	p := &Patch{def: def}
	s.patches[def.Name] = p
	return p, nil
}

// Comp returns an instantiated compartment by name.
func (s *State) Comp(name string) *Comp { return s.comps[name] }

// Patch returns an instantiated patch by name.
func (s *State) Patch(name string) *Patch { return s.patches[name] }

// Tets returns all volume elements in registration order.
func (s *State) Tets() []*Tet { return s.tets }

// Tris returns all boundary faces in registration order.
func (s *State) Tris() []*Tri { return s.tris }

// AddTet creates a volume element of the given volume (litres) inside a
// compartment.
func (s *State) AddTet(c *Comp, vol float64) (*Tet, error) {
	if s.setup {
		return nil, configErrorf("cannot add geometry after setup")
	}
	if c == nil {
		return nil, configErrorf("tet requires a compartment")
	}
	if vol <= 0 {
		return nil, configErrorf("tet volume must be positive, got %g", vol)
	}
	t := &Tet{
		id:      s.nextElem,
		def:     c.def,
		comp:    c,
		vol:     vol,
		counts:  make([]int, s.def.CountSpecs()),
		clamped: make([]bool, s.def.CountSpecs()),
	}
	if err := c.addTet(t); err != nil {
		return nil, err
	}
	s.nextElem++
	s.tets = append(s.tets, t)
	return t, nil
}

// AddGhostTet creates a placeholder for an element owned by a remote
// worker. Ghosts belong to no compartment and source no processes; hops
// may land in them so the owning worker can be told about arrivals.
func (s *State) AddGhostTet(c *Comp, vol float64) (*Tet, error) {
	if s.setup {
		return nil, configErrorf("cannot add geometry after setup")
	}
	if c == nil {
		return nil, configErrorf("ghost tet requires a compartment definition")
	}
	t := &Tet{
		id:      s.nextElem,
		def:     c.def,
		vol:     vol,
		ghost:   true,
		counts:  make([]int, s.def.CountSpecs()),
		clamped: make([]bool, s.def.CountSpecs()),
	}
	s.nextElem++
	s.tets = append(s.tets, t)
	return t, nil
}

// ConnectTets wires two volume elements as diffusion neighbours with the
// given per-direction coupling scales. A zero scale suppresses hops in
// that direction.
func (s *State) ConnectTets(a, b *Tet, scaleAB, scaleBA float64) error {
	if s.setup {
		return configErrorf("cannot connect geometry after setup")
	}
	if a == nil || b == nil {
		return configErrorf("cannot connect nil elements")
	}
	if scaleAB < 0 || scaleBA < 0 {
		return configErrorf("coupling scale must be non-negative")
	}
	if err := a.connect(b, scaleAB); err != nil {
		return err
	}
	return b.connect(a, scaleBA)
}

// AddTri creates a boundary face of the given area inside a patch,
// optionally coupled to an inner volume element.
func (s *State) AddTri(p *Patch, area float64, inner *Tet) (*Tri, error) {
	if s.setup {
		return nil, configErrorf("cannot add geometry after setup")
	}
	if p == nil {
		return nil, configErrorf("tri requires a patch")
	}
	if area <= 0 {
		return nil, configErrorf("tri area must be positive, got %g", area)
	}
	t := &Tri{
		id:      s.nextElem,
		def:     p.def,
		patch:   p,
		area:    area,
		inner:   inner,
		counts:  make([]int, s.def.CountSpecs()),
		clamped: make([]bool, s.def.CountSpecs()),
	}
	if err := p.addTri(t); err != nil {
		return nil, err
	}
	s.nextElem++
	s.tris = append(s.tris, t)
	return t, nil
}

// Setup instantiates every kinetic process implied by the geometry and the
// model definition, builds the dependency graph, and prepares the
// scheduler. It must be called exactly once, after all geometry exists and
// before any control or mutation call.
func (s *State) Setup() error {
	if s.setup {
		return configErrorf("setup already ran")
	}

	for _, t := range s.tets {
		if t.ghost {
			continue
		}
		for _, ridx := range t.def.Reacs {
			r := newReac(s.def.Reac(ridx), t)
			s.attach(t, r)
		}
		for _, didx := range t.def.Diffs {
			def := s.def.Diff(didx)
			for f := 0; f < tetFaces; f++ {
				nb := t.next[f]
				if nb == nil || t.scale[f] <= 0 {
					continue
				}
				if !nb.ghost && nb.comp != t.comp {
					continue
				}
				d := newDiff(def, t, nb, t.scale[f])
				s.attach(t, d)
			}
		}
	}
	for _, t := range s.tris {
		for _, ridx := range t.def.SReacs {
			r := newSReac(s.def.SReac(ridx), t)
			t.kprocs = append(t.kprocs, r)
			r.setSchedIDX(SchedIDX(len(s.kprocs)))
			s.kprocs = append(s.kprocs, r)
		}
	}

	s.graph = newDepGraph()
	for _, k := range s.kprocs {
		k.SetupDeps(s)
	}
	for _, k := range s.kprocs {
		k.setUpdVec(s.graph.updVecFor(k))
	}

	s.sched = newScheduler(s.kprocs)
	if err := s.sched.Reset(); err != nil {
		return err
	}

	s.setup = true
	s.log.Info(context.Background(), "state setup complete",
		logging.Int("tets", len(s.tets)),
		logging.Int("tris", len(s.tris)),
		logging.Int("kprocs", len(s.kprocs)),
	)
	return nil
}

func (s *State) attach(t *Tet, k KProc) {
	t.kprocs = append(t.kprocs, k)
	k.setSchedIDX(SchedIDX(len(s.kprocs)))
	s.kprocs = append(s.kprocs, k)
}

// Graph exposes the dependency graph, read-only, for diagnostics.
func (s *State) Graph() *DepGraph { return s.graph }

// KProcs returns all kinetic processes in schedule order.
func (s *State) KProcs() []KProc { return s.kprocs }

// ValidateDeps cross-checks graph completeness: every process whose
// propensity reads a count mutated by some other process must appear in
// that process's update vector. An omission is an invariant violation.
func (s *State) ValidateDeps() error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	for _, k := range s.kprocs {
		upd := make(map[SchedIDX]bool)
		for _, idx := range s.graph.updVecFor(k) {
			upd[idx] = true
		}
		for _, key := range k.writeSet() {
			for _, other := range s.kprocs {
				if other.DependsOnSpecAt(key.Spec, key.Elem) && !upd[other.SchedIDX()] {
					return invariantErrorf(
						"process %d mutates species %d in element %d but dependent process %d is missing from its update vector",
						k.SchedIDX(), key.Spec, key.Elem, other.SchedIDX())
				}
			}
		}
	}
	return nil
}

// ---- Control ----

// Reset reinitializes the run without rebuilding geometry: counts and
// clamps cleared, clock zeroed, per-process overrides dropped,
// propensities recomputed.
func (s *State) Reset() error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	s.time = 0
	s.nsteps = 0
	for _, t := range s.tets {
		for g := range t.counts {
			t.counts[g] = 0
			t.clamped[g] = false
		}
	}
	for _, t := range s.tris {
		for g := range t.counts {
			t.counts[g] = 0
			t.clamped[g] = false
		}
	}
	for _, k := range s.kprocs {
		k.Reset()
	}
	return s.sched.Reset()
}

type stepOutcome int

const (
	stepApplied stepOutcome = iota
	stepQuiescent
	stepPastLimit
)

// step runs one SELECT/APPLY cycle. The quiescence check precedes any
// draw, so a dead system consumes no random numbers. When the sampled
// waiting time would carry the clock past limit, the clock is pinned to
// the limit and no event is applied.
func (s *State) step(limit float64) (stepOutcome, error) {
	total := s.sched.Total()
	if total <= 0 {
		return stepQuiescent, nil
	}

	idx, ok := s.sched.Select(s.rng.Float64())
	if !ok {
		return stepQuiescent, nil
	}
	dt := -math.Log(1-s.rng.Float64()) / total
	if s.time+dt > limit {
		s.time = limit
		return stepPastLimit, nil
	}
	s.time += dt

	upd, err := s.kprocs[idx].Apply(s)
	if err != nil {
		return stepApplied, err
	}
	if err := s.requeue(upd); err != nil {
		return stepApplied, err
	}
	s.nsteps++

	if s.metrics != nil {
		s.metrics.EventApplied(s.sched.Total())
		s.metrics.ClockAdvanced(s.time)
	}
	return stepApplied, nil
}

// Step applies exactly one event. It returns false, without drawing any
// random numbers, when the system is quiescent.
func (s *State) Step() (bool, error) {
	if !s.setup {
		return false, configErrorf("setup has not run")
	}
	out, err := s.step(math.Inf(1))
	return out == stepApplied, err
}

// Run advances the simulation until the clock reaches endTime or the
// system goes quiescent. Quiescence is a defined terminal state, not an
// error: the clock is pinned to endTime and Run returns nil.
func (s *State) Run(endTime float64) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	if endTime < s.time {
		return configErrorf("end time %g is before current time %g", endTime, s.time)
	}
	ctx := context.Background()
	for s.time < endTime {
		var started time.Time
		if s.metrics != nil {
			started = time.Now()
		}
		out, err := s.step(endTime)
		if err != nil {
			return err
		}
		if s.metrics != nil && out == stepApplied {
			s.metrics.StepDuration(time.Since(started).Seconds())
		}
		if out == stepQuiescent {
			s.log.Info(ctx, "system quiescent; pinning clock to end time",
				logging.Any("time", s.time),
				logging.Any("end_time", endTime),
			)
			s.time = endTime
			if s.metrics != nil {
				s.metrics.ClockAdvanced(s.time)
			}
			return nil
		}
	}
	return nil
}

// RunEvents applies at most maxEvents events, returning how many were
// applied. It stops early on quiescence.
func (s *State) RunEvents(maxEvents uint64) (uint64, error) {
	if !s.setup {
		return 0, configErrorf("setup has not run")
	}
	var applied uint64
	for applied < maxEvents {
		out, err := s.step(math.Inf(1))
		if err != nil {
			return applied, err
		}
		if out != stepApplied {
			return applied, nil
		}
		applied++
	}
	return applied, nil
}

// ---- Queries and external mutation ----

// Time returns the current simulation clock.
func (s *State) Time() float64 { return s.time }

// Steps returns the number of events applied since the last Reset.
func (s *State) Steps() uint64 { return s.nsteps }

// TotalRate returns the current total propensity.
func (s *State) TotalRate() float64 { return s.sched.Total() }

// KProcRate returns the cached propensity of one process, for diagnostics.
func (s *State) KProcRate(idx SchedIDX) float64 { return s.sched.Rate(idx) }

// SetTetCount sets the count of species gidx in a volume element. The
// mutation flows through the dependency graph exactly like an applied
// event, so no propensity goes stale.
func (s *State) SetTetCount(t *Tet, gidx, n int) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	if n < 0 {
		return configErrorf("count must be non-negative, got %d", n)
	}
	t.setCount(gidx, n)
	return s.invalidate(depKey{Elem: t.id, Spec: gidx})
}

// InjectTetDelta applies a signed count change to a volume element with
// full dependency invalidation. The distributed sync layer funnels remote
// arrival deltas through here.
func (s *State) InjectTetDelta(t *Tet, gidx, delta int) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	n := t.counts[gidx] + delta
	if n < 0 {
		return invariantErrorf("remote delta drives species %d in element %d to %d", gidx, t.id, n)
	}
	t.setCount(gidx, n)
	return s.invalidate(depKey{Elem: t.id, Spec: gidx})
}

// SetTriCount sets the surface count of species gidx on a boundary face.
func (s *State) SetTriCount(t *Tri, gidx, n int) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	if n < 0 {
		return configErrorf("count must be non-negative, got %d", n)
	}
	t.setCount(gidx, n)
	return s.invalidate(depKey{Elem: t.id, Spec: gidx})
}

// CompCount returns the total count of a species in a compartment.
func (s *State) CompCount(c *Comp, gidx int) int { return c.Count(gidx) }

// SetCompCount distributes n molecules of a species across the
// compartment's members, volume-weighted, and invalidates every affected
// propensity.
func (s *State) SetCompCount(c *Comp, gidx, n int) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	if n < 0 {
		return configErrorf("count must be non-negative, got %d", n)
	}
	keys := make([]depKey, 0, len(c.tets))
	for _, t := range c.tets {
		t.setCount(gidx, 0)
		keys = append(keys, depKey{Elem: t.id, Spec: gidx})
	}
	for i := 0; i < n; i++ {
		t := c.PickTetByVol(s.rng.Float64())
		t.counts[gidx]++
	}
	return s.invalidate(keys...)
}

// SetCompConc sets a compartment count from a molar concentration.
func (s *State) SetCompConc(c *Comp, gidx int, conc float64) error {
	if conc < 0 {
		return configErrorf("concentration must be non-negative, got %g", conc)
	}
	return s.SetCompCount(c, gidx, model.CountFromConc(conc, c.vol))
}

// CompConc returns the molar concentration of a species in a compartment.
func (s *State) CompConc(c *Comp, gidx int) float64 {
	return model.ConcFromCount(c.Count(gidx), c.vol)
}

// SetCompClamped clamps or releases a species in every member element.
func (s *State) SetCompClamped(c *Comp, gidx int, clamp bool) {
	for _, t := range c.tets {
		t.clamped[gidx] = clamp
	}
}

// PatchCount returns the total surface count of a species on a patch.
func (s *State) PatchCount(p *Patch, gidx int) int { return p.Count(gidx) }

// SetPatchCount distributes n surface molecules across the patch's faces,
// area-weighted, with full invalidation.
func (s *State) SetPatchCount(p *Patch, gidx, n int) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	if n < 0 {
		return configErrorf("count must be non-negative, got %d", n)
	}
	keys := make([]depKey, 0, len(p.tris))
	for _, t := range p.tris {
		t.setCount(gidx, 0)
		keys = append(keys, depKey{Elem: t.id, Spec: gidx})
	}
	for i := 0; i < n; i++ {
		t := p.PickTriByArea(s.rng.Float64())
		t.counts[gidx]++
	}
	return s.invalidate(keys...)
}

// SetCompReacK overrides the rate constant of one reaction channel in
// every member element of a compartment.
func (s *State) SetCompReacK(c *Comp, ridx int, kcst float64) error {
	if kcst < 0 {
		return configErrorf("rate constant must be non-negative, got %g", kcst)
	}
	found := false
	for _, t := range c.tets {
		for _, k := range t.kprocs {
			r, ok := k.(*Reac)
			if !ok || r.def.Idx != ridx {
				continue
			}
			found = true
			r.SetKcst(kcst)
			if err := s.sched.Update(r.idx, r.Rate()); err != nil {
				return err
			}
		}
	}
	if !found {
		return configErrorf("reaction %d not active in compartment %q", ridx, c.def.Name)
	}
	return nil
}

// SetCompReacActive switches one reaction channel on or off in every
// member element of a compartment.
func (s *State) SetCompReacActive(c *Comp, ridx int, active bool) error {
	found := false
	for _, t := range c.tets {
		for _, k := range t.kprocs {
			r, ok := k.(*Reac)
			if !ok || r.def.Idx != ridx {
				continue
			}
			found = true
			r.SetActive(active)
			if err := s.sched.Update(r.idx, r.Rate()); err != nil {
				return err
			}
		}
	}
	if !found {
		return configErrorf("reaction %d not active in compartment %q", ridx, c.def.Name)
	}
	return nil
}

// CompReacActive reports whether a reaction channel is active anywhere in
// the compartment.
func (s *State) CompReacActive(c *Comp, ridx int) bool {
	for _, t := range c.tets {
		for _, k := range t.kprocs {
			if r, ok := k.(*Reac); ok && r.def.Idx == ridx && r.Active() {
				return true
			}
		}
	}
	return false
}

// invalidate recomputes the propensity of every process depending on the
// given counts.
func (s *State) invalidate(keys ...depKey) error {
	seen := make(map[SchedIDX]bool)
	for _, key := range keys {
		for _, idx := range s.graph.Dependents(key.Elem, key.Spec) {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			if err := s.sched.Update(idx, s.kprocs[idx].Rate()); err != nil {
				return err
			}
		}
	}
	return nil
}

// requeue pushes freshly computed propensities for exactly the given
// schedule indices. Nothing outside the set is touched; this
// incrementality is the engine's performance contract.
func (s *State) requeue(idxs []SchedIDX) error {
	for _, idx := range idxs {
		if err := s.sched.Update(idx, s.kprocs[idx].Rate()); err != nil {
			return err
		}
	}
	return nil
}
