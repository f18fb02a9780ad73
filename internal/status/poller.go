package status

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller runs a task on a fixed interval while started.
type Poller struct {
	interval time.Duration
	task     func(ctx context.Context) error
	log      logrus.FieldLogger
}

func NewPoller(interval time.Duration, task func(ctx context.Context) error, log logrus.FieldLogger) *Poller {
	return &Poller{interval: interval, task: task, log: log}
}

// UnreadPoller keeps the tracker in sync with the server count.
func UnreadPoller(t *UnreadTracker, interval time.Duration) *Poller {
	return NewPoller(interval, func(ctx context.Context) error {
		_, err := t.Sync(ctx)
		return err
	}, t.log)
}

// Start runs the task once immediately and then on every tick until ctx is
// done or the returned stop function is called. Stop waits for the
// goroutine to exit and may be called more than once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.run(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (p *Poller) run(ctx context.Context) {
	if err := p.task(ctx); err != nil && ctx.Err() == nil {
		p.log.WithError(err).Warn("Poll failed")
	}
}
