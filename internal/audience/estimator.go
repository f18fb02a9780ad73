package audience

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"directory-console/internal/models"
)

// Counter resolves criteria to a recipient count on the backend.
type Counter interface {
	CountRecipients(ctx context.Context, criteria models.FilterCriteria) (int, error)
}

var (
	// ErrSuperseded is returned to an estimate that a newer one replaced.
	ErrSuperseded = errors.New("recipient estimate superseded")
	ErrClosed     = errors.New("estimator closed")
)

// Estimate is the last applied recipient count.
type Estimate struct {
	Criteria models.FilterCriteria
	Count    int
	Seq      uint64
}

// Estimator applies only the result of the most recently issued estimate.
// Issuing a new estimate cancels the one in flight.
type Estimator struct {
	counter Counter
	log     logrus.FieldLogger

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current *Estimate
	closed  bool
}

func NewEstimator(counter Counter, log logrus.FieldLogger) *Estimator {
	return &Estimator{
		counter: counter,
		log:     log.WithField("component", "audience"),
	}
}

// Estimate asks the backend for the size of the audience. A call that was
// superseded by a later one returns ErrSuperseded and leaves Current alone.
func (e *Estimator) Estimate(ctx context.Context, criteria models.FilterCriteria) (int, error) {
	if err := Validate(criteria); err != nil {
		return 0, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrClosed
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	seq := e.seq
	callCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	count, err := e.counter.CountRecipients(callCtx, criteria.Clone())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	if seq != e.seq {
		e.log.WithField("seq", seq).Debug("Dropping stale recipient estimate")
		return 0, ErrSuperseded
	}
	e.cancel = nil
	if err != nil {
		return 0, err
	}
	e.current = &Estimate{Criteria: criteria.Clone(), Count: count, Seq: seq}
	return count, nil
}

// Current returns the latest applied estimate.
func (e *Estimator) Current() (Estimate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Estimate{}, false
	}
	return *e.current, true
}

// Reset forgets the applied estimate and abandons any call in flight.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.current = nil
}

// Close abandons the call in flight; later results are discarded.
func (e *Estimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
