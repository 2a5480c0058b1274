package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []Notification
	block     chan struct{}
	err       error
	panics    bool
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	if r.block != nil {
		<-r.block
	}
	if r.panics {
		panic("notifier exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

func testLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestNotificationWorkerDelivers(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewNotificationWorker(notifier, 4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	n := NewNotification(1, NotificationNewLead, "My Store", map[string]interface{}{"lead_id": 1})
	require.True(t, w.Enqueue(n))

	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()

	assert.Equal(t, n.ID, notifier.delivered[0].ID)
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	w := NewNotificationWorker(&recordingNotifier{}, 2, testLogger())

	// Not started, so nothing drains the queue.
	assert.True(t, w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)))
	assert.True(t, w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)))
	assert.False(t, w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)))
}

func TestNotificationWorkerDrainsOnShutdown(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewNotificationWorker(notifier, 8, testLogger())

	for i := 0; i < 5; i++ {
		require.True(t, w.Enqueue(NewNotification(uint(i), NotificationNewCustomer, "s", nil)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 5, notifier.count())
	assert.False(t, w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)))
}

func TestNotificationWorkerDeliversEverythingAcceptedDuringShutdown(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewNotificationWorker(notifier, 1024, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	var accepted int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)) {
					atomic.AddInt64(&accepted, 1)
				}
			}
		}()
	}
	cancel()
	wg.Wait()
	w.Wait()

	assert.Equal(t, int(atomic.LoadInt64(&accepted)), notifier.count())
	assert.False(t, w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil)))
}

func TestNotificationWorkerSurvivesFailures(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("telegram down")}
	w := NewNotificationWorker(failing, 4, testLogger())
	w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil))
	w.Enqueue(NewNotification(2, NotificationNewLead, "s", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	assert.Equal(t, 2, failing.count())

	panicking := &recordingNotifier{panics: true}
	w = NewNotificationWorker(panicking, 4, testLogger())
	w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil))
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { w.Start(ctx) })
}

func TestEnqueueNeverBlocksOnSlowNotifier(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}
	w := NewNotificationWorker(notifier, 1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Enqueue(NewNotification(1, NotificationNewLead, "s", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}

	close(notifier.block)
	cancel()
	w.Wait()
}
