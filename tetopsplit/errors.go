package tetopsplit

import "fmt"

// DesyncError reports a broken boundary-synchronization invariant between
// workers: a batch for the wrong round, a delta addressed to an element
// the receiver does not own, or a mirrored count disagreeing with its
// owner. Desynchronization is fatal — it means the partition or the
// protocol violated an invariant, and the stochastic process can no
// longer be trusted.
type DesyncError struct {
	Msg string
}

func (e *DesyncError) Error() string {
	return "tetopsplit: desync: " + e.Msg
}

func desyncErrorf(format string, args ...any) *DesyncError {
	return &DesyncError{Msg: fmt.Sprintf(format, args...)}
}
