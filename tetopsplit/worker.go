package tetopsplit

import (
	"sort"

	"github.com/WeiliangChenOIST/FORK-STEPS/core"
)

// Worker runs one independent local event loop over the mesh elements it
// owns. Cross-boundary diffusive hops land in ghost elements; at each sync
// round the accumulated arrivals are flushed to the owning worker as
// deltas, and authoritative boundary counts flow back into read-only
// mirrors.
//
// A worker is single-threaded internally; concurrency exists only across
// workers, and no worker ever mutates another worker's owned elements
// directly.
type Worker struct {
	id int
	st *core.State
	tr Transport

	owned      map[int]*core.Tet // global element -> owned local tet
	ghosts     map[int]*core.Tet // global element -> local ghost
	ghostPeer  map[int]int       // global element -> owning worker
	peerGhosts map[int][]int     // peer -> sorted ghosted global elements
	exports    map[int][]int     // peer -> sorted owned global elements mirrored there
	mirrors    map[int][]int     // remote global element -> last authoritative counts

	peers []int
}

// ID returns the worker's rank.
func (w *Worker) ID() int { return w.id }

// State exposes the worker's local solver state.
func (w *Worker) State() *core.State { return w.st }

// Clock returns the worker's local simulation time.
func (w *Worker) Clock() float64 { return w.st.Time() }

// Peers returns the workers this one shares a boundary with.
func (w *Worker) Peers() []int { return w.peers }

// OwnedTet returns the local tet for a global element, nil if not owned
// here.
func (w *Worker) OwnedTet(gElem int) *core.Tet { return w.owned[gElem] }

// MirrorCount returns the last mirrored count of a remote boundary
// element, and whether that element is mirrored here at all.
func (w *Worker) MirrorCount(gElem, gidx int) (int, bool) {
	counts, ok := w.mirrors[gElem]
	if !ok {
		return 0, false
	}
	return counts[gidx], true
}

// AdvanceTo drives the local loop until the local clock reaches the
// horizon. Quiescence pins the clock to the horizon, so every worker
// arrives at the rendezvous with the same local time.
func (w *Worker) AdvanceTo(horizon float64) error {
	return w.st.Run(horizon)
}

// ExchangeDeltas flushes ghost arrivals to their owners and applies the
// deltas received from every peer, with full dependency-graph
// invalidation on the receiving side. It returns the number of deltas
// applied locally.
func (w *Worker) ExchangeDeltas(round uint64, horizon float64) (int, error) {
	for _, peer := range w.peers {
		var deltas []Delta
		for _, gElem := range w.peerGhosts[peer] {
			ghost := w.ghosts[gElem]
			for gidx := 0; gidx < w.st.Def().CountSpecs(); gidx++ {
				if n := ghost.Count(gidx); n > 0 {
					deltas = append(deltas, Delta{Elem: gElem, Spec: gidx, N: n})
				}
			}
		}
		if err := w.tr.Send(Batch{
			From:   w.id,
			To:     peer,
			Round:  round,
			Clock:  w.st.Time(),
			Kind:   KindDeltas,
			Deltas: deltas,
		}); err != nil {
			return 0, err
		}
		// Arrivals are handed off; ghosts go back to empty.
		for _, gElem := range w.peerGhosts[peer] {
			ghost := w.ghosts[gElem]
			for gidx := 0; gidx < w.st.Def().CountSpecs(); gidx++ {
				if ghost.Count(gidx) != 0 {
					if err := w.st.SetTetCount(ghost, gidx, 0); err != nil {
						return 0, err
					}
				}
			}
		}
	}

	applied := 0
	for _, peer := range w.peers {
		b, err := w.tr.Recv(w.id, peer)
		if err != nil {
			return applied, err
		}
		if err := w.checkBatch(b, peer, round, horizon, KindDeltas); err != nil {
			return applied, err
		}
		for _, d := range b.Deltas {
			t := w.owned[d.Elem]
			if t == nil {
				return applied, desyncErrorf("worker %d received delta for element %d it does not own", w.id, d.Elem)
			}
			if d.N <= 0 {
				return applied, desyncErrorf("worker %d received non-positive arrival delta %d for element %d", w.id, d.N, d.Elem)
			}
			if err := w.st.InjectTetDelta(t, d.Spec, d.N); err != nil {
				return applied, err
			}
			applied++
		}
	}
	return applied, nil
}

// ExchangeMirrors publishes authoritative counts of owned boundary
// elements and refreshes local mirrors of remote ones. It runs after
// ExchangeDeltas so mirrors reflect the post-round state.
func (w *Worker) ExchangeMirrors(round uint64, horizon float64) error {
	nspecs := w.st.Def().CountSpecs()
	for _, peer := range w.peers {
		var counts []Delta
		for _, gElem := range w.exports[peer] {
			t := w.owned[gElem]
			for gidx := 0; gidx < nspecs; gidx++ {
				counts = append(counts, Delta{Elem: gElem, Spec: gidx, N: t.Count(gidx)})
			}
		}
		if err := w.tr.Send(Batch{
			From:   w.id,
			To:     peer,
			Round:  round,
			Clock:  w.st.Time(),
			Kind:   KindMirror,
			Deltas: counts,
		}); err != nil {
			return err
		}
	}

	for _, peer := range w.peers {
		b, err := w.tr.Recv(w.id, peer)
		if err != nil {
			return err
		}
		if err := w.checkBatch(b, peer, round, horizon, KindMirror); err != nil {
			return err
		}
		for _, d := range b.Deltas {
			if owner, ok := w.ghostPeer[d.Elem]; !ok || owner != peer {
				return desyncErrorf("worker %d received mirror for element %d not ghosted from worker %d", w.id, d.Elem, peer)
			}
			if d.N < 0 {
				return desyncErrorf("worker %d received negative mirror count %d for element %d", w.id, d.N, d.Elem)
			}
			counts, ok := w.mirrors[d.Elem]
			if !ok {
				counts = make([]int, nspecs)
				w.mirrors[d.Elem] = counts
			}
			counts[d.Spec] = d.N
		}
	}
	return nil
}

func (w *Worker) checkBatch(b Batch, peer int, round uint64, horizon float64, kind BatchKind) error {
	if b.From != peer || b.To != w.id {
		return desyncErrorf("worker %d received batch addressed %d->%d from channel of worker %d", w.id, b.From, b.To, peer)
	}
	if b.Kind != kind {
		return desyncErrorf("worker %d received batch kind %d from worker %d, expected %d", w.id, b.Kind, peer, kind)
	}
	if b.Round != round {
		return desyncErrorf("worker %d received round %d batch from worker %d during round %d", w.id, b.Round, peer, round)
	}
	if b.Clock > horizon {
		return desyncErrorf("worker %d clock %g ran past the round horizon %g", peer, b.Clock, horizon)
	}
	return nil
}

func (w *Worker) addPeer(peer int) {
	for _, have := range w.peers {
		if have == peer {
			return
		}
	}
	w.peers = append(w.peers, peer)
	sort.Ints(w.peers)
}

func appendUniqueSorted(list []int, v int) []int {
	i := sort.SearchInts(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
