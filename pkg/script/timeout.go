package script

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the hard wall for a single evaluation. User source can
// loop forever; the sandbox cannot interrupt it, so the engine abandons
// the goroutine and cancels its remaining side effects.
const EvalTimeout = 5 * time.Second

// ErrSuperseded reports that a newer evaluation started before this one
// finished; its remaining side effects were canceled.
var ErrSuperseded = errors.New("evaluation superseded by newer request")

// ErrTimeout reports an evaluation that exceeded EvalTimeout.
var ErrTimeout = errors.New("evaluation timed out")

type evalOutcome struct {
	result *EvalResult
	err    error
}

// waitWithTimeout waits for the evaluation goroutine, discarding its
// outcome if a newer evaluation started in the meantime.
func (e *Engine) waitWithTimeout(ch chan evalOutcome, gen uint64, stop chan struct{}) (*EvalResult, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return nil, ErrSuperseded
		}
		return out.result, out.err
	case <-timer.C:
		e.cancel(gen, stop)
		return nil, fmt.Errorf("%w after %s", ErrTimeout, EvalTimeout)
	}
}

// cancel closes the stop channel for generation gen, unless a newer
// evaluation already replaced it.
func (e *Engine) cancel(gen uint64, stop chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.generation && e.stop == stop {
		close(stop)
		e.stop = nil
	}
}
