package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/pipeline/queue"
)

// fakeQueue records acks, nacks and dead letters.
type fakeQueue struct {
	mu       sync.Mutex
	messages []*queue.QueuedMessage
	acked    []string
	nacked   []string
	dead     map[string]string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{dead: make(map[string]string)}
}

func (f *fakeQueue) Name() string { return "test" }

func (f *fakeQueue) Enqueue(msg *queue.ProcessMeetingMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, &queue.QueuedMessage{
		ID:      fmt.Sprintf("msg-%d", len(f.messages)+1),
		Message: raw,
	})
	return nil
}

func (f *fakeQueue) Dequeue(maxMessages int, _ time.Duration) ([]*queue.QueuedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil, nil
	}
	if maxMessages > len(f.messages) {
		maxMessages = len(f.messages)
	}
	out := f.messages[:maxMessages]
	f.messages = f.messages[maxMessages:]
	return out, nil
}

func (f *fakeQueue) Ack(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeQueue) Nack(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, id)
	return nil
}

func (f *fakeQueue) MoveToDeadLetter(id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead[id] = reason
	return nil
}

func (f *fakeQueue) Depth() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.messages)), nil
}

func (f *fakeQueue) Close() error { return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Count = 1
	cfg.PollInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func enqueue(t *testing.T, q *fakeQueue, meetingID int64) {
	t.Helper()
	require.NoError(t, q.Enqueue(&queue.ProcessMeetingMessage{MeetingID: meetingID, OwnerID: 1}))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWorkerAcksOnSuccess(t *testing.T) {
	q := newFakeQueue()
	enqueue(t, q, 42)

	var handled atomic64
	worker := NewWorker(testConfig(), q, func(_ context.Context, msg *queue.ProcessMeetingMessage) error {
		handled.add(msg.MeetingID)
		return nil
	}, logging.NewNopLogger())

	worker.Start()
	defer worker.Stop()

	waitFor(t, func() bool { return worker.ProcessedCount.Load() == 1 })

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Equal(t, []string{"msg-1"}, q.acked)
	assert.Empty(t, q.nacked)
	assert.EqualValues(t, 42, handled.load())
}

func TestWorkerNacksOnFailure(t *testing.T) {
	q := newFakeQueue()
	enqueue(t, q, 42)

	worker := NewWorker(testConfig(), q, func(context.Context, *queue.ProcessMeetingMessage) error {
		return errors.New("transcription provider down")
	}, logging.NewNopLogger())

	worker.Start()
	defer worker.Stop()

	waitFor(t, func() bool { return worker.FailedCount.Load() == 1 })

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Equal(t, []string{"msg-1"}, q.nacked)
	assert.Empty(t, q.acked)
}

func TestWorkerRequeuesOnConflict(t *testing.T) {
	q := newFakeQueue()
	enqueue(t, q, 42)

	worker := NewWorker(testConfig(), q, func(context.Context, *queue.ProcessMeetingMessage) error {
		return fmt.Errorf("acquiring lock: %w", smarterrors.ErrConflict)
	}, logging.NewNopLogger())

	worker.Start()
	defer worker.Stop()

	waitFor(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.nacked) == 1
	})

	// A lock conflict is not a processing failure.
	assert.EqualValues(t, 0, worker.FailedCount.Load())
}

func TestWorkerDeadLettersBadMessage(t *testing.T) {
	q := newFakeQueue()
	q.messages = append(q.messages, &queue.QueuedMessage{ID: "msg-1", Message: []byte("garbage")})

	worker := NewWorker(testConfig(), q, func(context.Context, *queue.ProcessMeetingMessage) error {
		t.Error("handler must not run for undecodable messages")
		return nil
	}, logging.NewNopLogger())

	worker.Start()
	defer worker.Stop()

	waitFor(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.dead) == 1
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Contains(t, q.dead["msg-1"], "parse error")
}

func TestWorkerDeadLettersValidationError(t *testing.T) {
	q := newFakeQueue()
	enqueue(t, q, 42)

	worker := NewWorker(testConfig(), q, func(context.Context, *queue.ProcessMeetingMessage) error {
		return fmt.Errorf("audio missing: %w", smarterrors.ErrValidation)
	}, logging.NewNopLogger())

	worker.Start()
	defer worker.Stop()

	waitFor(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.dead) == 1
	})
}

func TestPoolProcessesAllMessages(t *testing.T) {
	q := newFakeQueue()
	for i := int64(1); i <= 5; i++ {
		enqueue(t, q, i)
	}

	cfg := testConfig()
	cfg.Count = 3

	var processed atomic64
	pool := NewPool(cfg, q, func(context.Context, *queue.ProcessMeetingMessage) error {
		processed.add(1)
		return nil
	}, logging.NewNopLogger())

	pool.Start()
	waitFor(t, func() bool { return processed.load() == 5 })
	pool.Stop()

	stats := pool.Stats()
	assert.Equal(t, 3, stats.WorkerCount)
	assert.EqualValues(t, 5, stats.Processed)
	assert.EqualValues(t, 0, stats.Failed)
}

// atomic64 is a tiny helper around an int64 for test counters.
type atomic64 struct {
	mu sync.Mutex
	v  int64
}

func (a *atomic64) add(n int64) {
	a.mu.Lock()
	a.v += n
	a.mu.Unlock()
}

func (a *atomic64) load() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}
