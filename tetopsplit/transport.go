package tetopsplit

import (
	"fmt"
	"time"
)

// BatchKind distinguishes the two phases of a sync round.
type BatchKind int

const (
	// KindDeltas carries applied-event count deltas for elements owned
	// by the receiver.
	KindDeltas BatchKind = iota
	// KindMirror carries authoritative counts of sender-owned boundary
	// elements, for the receiver's read-only mirrors.
	KindMirror
)

// Delta is one count change for a single (element, species) pair,
// addressed by global element index.
type Delta struct {
	Elem int
	Spec int
	N    int
}

// Batch is one protocol message between a pair of workers. Every worker
// sends exactly one batch of each kind to every neighbour per round, even
// when empty — the exchange doubles as the barrier rendezvous.
type Batch struct {
	From  int
	To    int
	Round uint64
	Clock float64
	Kind  BatchKind

	Deltas []Delta
}

// Transport moves batches between worker pairs. Implementations must
// deliver batches between a given pair in send order.
type Transport interface {
	Send(b Batch) error
	Recv(to, from int) (Batch, error)
}

// ChanTransport is the in-process Transport: one buffered channel per
// ordered worker pair. The protocol guarantees at most two unconsumed
// batches per pair per round, which bounds the buffer.
type ChanTransport struct {
	n       int
	chans   []chan Batch
	timeout time.Duration
}

// NewChanTransport builds channels for every ordered pair of nWorkers
// workers. A worker that fails to produce its batch within the timeout is
// treated as desynchronized.
func NewChanTransport(nWorkers int, timeout time.Duration) *ChanTransport {
	chans := make([]chan Batch, nWorkers*nWorkers)
	for i := range chans {
		chans[i] = make(chan Batch, 2)
	}
	return &ChanTransport{n: nWorkers, chans: chans, timeout: timeout}
}

func (t *ChanTransport) pair(from, to int) (chan Batch, error) {
	if from < 0 || from >= t.n || to < 0 || to >= t.n {
		return nil, fmt.Errorf("tetopsplit: no channel for pair (%d,%d)", from, to)
	}
	return t.chans[from*t.n+to], nil
}

// Send implements Transport.
func (t *ChanTransport) Send(b Batch) error {
	ch, err := t.pair(b.From, b.To)
	if err != nil {
		return err
	}
	select {
	case ch <- b:
		return nil
	default:
		return desyncErrorf("channel %d->%d full; receiver fell behind the round protocol", b.From, b.To)
	}
}

// Recv implements Transport.
func (t *ChanTransport) Recv(to, from int) (Batch, error) {
	ch, err := t.pair(from, to)
	if err != nil {
		return Batch{}, err
	}
	select {
	case b := <-ch:
		return b, nil
	case <-time.After(t.timeout):
		return Batch{}, desyncErrorf("worker %d timed out waiting for batch from worker %d", to, from)
	}
}
