package status

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Inbox is the backend side of the admin's unread notifications.
type Inbox interface {
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// UnreadTracker holds the unread badge count. Marking read is applied
// optimistically and at most once per notification.
type UnreadTracker struct {
	inbox Inbox
	log   logrus.FieldLogger

	mu      sync.Mutex
	count   int
	marked  map[string]bool
	changed []func(int)
}

func NewUnreadTracker(inbox Inbox, log logrus.FieldLogger) *UnreadTracker {
	return &UnreadTracker{
		inbox:  inbox,
		log:    log.WithField("component", "unread"),
		marked: make(map[string]bool),
	}
}

func (t *UnreadTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// SetCount applies a count reported by the server.
func (t *UnreadTracker) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	t.mu.Lock()
	t.count = n
	t.mu.Unlock()
	t.notify(n)
}

// Reset forgets the count and which notifications were marked read. It is
// used when the session that owned them ends.
func (t *UnreadTracker) Reset() {
	t.mu.Lock()
	t.count = 0
	t.marked = make(map[string]bool)
	t.mu.Unlock()
	t.notify(0)
}

// Sync fetches the server count and applies it.
func (t *UnreadTracker) Sync(ctx context.Context) (int, error) {
	n, err := t.inbox.UnreadCount(ctx)
	if err != nil {
		return t.Count(), err
	}
	t.SetCount(n)
	return n, nil
}

// OnChange registers fn to be called with every new count.
func (t *UnreadTracker) OnChange(fn func(int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changed = append(t.changed, fn)
}

// MarkRead decrements the counter before calling the server. Repeated or
// concurrent calls for the same id decrement once; a failed call is rolled
// back so it can be retried.
func (t *UnreadTracker) MarkRead(ctx context.Context, id string) error {
	t.mu.Lock()
	if t.marked[id] {
		t.mu.Unlock()
		return nil
	}
	t.marked[id] = true
	decremented := t.count > 0
	if decremented {
		t.count--
	}
	n := t.count
	t.mu.Unlock()
	t.notify(n)

	if err := t.inbox.MarkNotificationRead(ctx, id); err != nil {
		t.mu.Lock()
		delete(t.marked, id)
		if decremented {
			t.count++
		}
		n = t.count
		t.mu.Unlock()
		t.notify(n)

		t.log.WithError(err).WithField("notification_id", id).Warn("Mark as read failed")
		return err
	}
	return nil
}

func (t *UnreadTracker) notify(n int) {
	t.mu.Lock()
	fns := append([]func(int){}, t.changed...)
	t.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}
