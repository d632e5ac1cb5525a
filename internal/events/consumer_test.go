package events

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/workingset"
)

type fakeTarget struct {
	mu          sync.Mutex
	invalidated int
	refreshed   int
	origins     []string
}

func (f *fakeTarget) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

func (f *fakeTarget) Refresh(_ context.Context, origin string, _ bool) (workingset.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	f.origins = append(f.origins, origin)
	return workingset.Snapshot{}, nil
}

func (f *fakeTarget) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated, f.refreshed
}

// queueReader hands out queued messages, then blocks until closed
type queueReader struct {
	messages chan kafka.Message
	closed   chan struct{}
	once     sync.Once
}

func newQueueReader(values ...string) *queueReader {
	r := &queueReader{messages: make(chan kafka.Message, len(values)), closed: make(chan struct{})}
	for i, v := range values {
		r.messages <- kafka.Message{Value: []byte(v), Offset: int64(i)}
	}
	return r
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *queueReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

type actionRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (a *actionRecorder) RecordEvent(action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{"Case Created", `{"event_type": "case.created", "case_id": 12}`, ActionRefresh},
		{"Status Change Uses Type Field", `{"type": "case.status_changed"}`, ActionRefresh},
		{"Report Assigned", `{"event_type": "REPORT.ASSIGNED"}`, ActionRefresh},
		{"Unrelated Event", `{"event_type": "user.login"}`, ActionIgnored},
		{"Missing Type", `{"case_id": 12}`, ActionMalformed},
		{"Not An Object", `["case.created"]`, ActionMalformed},
		{"Invalid JSON", `{"event_type": `, ActionMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify([]byte(tt.payload)))
		})
	}
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "case.updated", EventType([]byte(`{"event_type": "case.updated", "type": "other"}`)))
	assert.Equal(t, "case.deleted", EventType([]byte(`{"type": "case.deleted"}`)))
	assert.Equal(t, "", EventType([]byte(`{"event_type": 3}`)))
}

func TestConsumerHandle(t *testing.T) {
	target := &fakeTarget{}
	rec := &actionRecorder{}
	c := NewConsumer(newQueueReader(), target, rec, time.Second, zap.NewNop())

	assert.Equal(t, ActionRefresh, c.Handle(context.Background(), kafka.Message{Value: []byte(`{"event_type": "case.updated"}`)}))
	assert.Equal(t, ActionIgnored, c.Handle(context.Background(), kafka.Message{Value: []byte(`{"event_type": "user.created"}`)}))
	assert.Equal(t, ActionMalformed, c.Handle(context.Background(), kafka.Message{Value: []byte(`garbage`)}))

	invalidated, refreshed := target.counts()
	assert.Equal(t, 1, invalidated)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, []string{workingset.OriginEvent}, target.origins)
	assert.Equal(t, []string{ActionRefresh, ActionIgnored, ActionMalformed}, rec.actions)
}

func TestConsumerLoop(t *testing.T) {
	target := &fakeTarget{}
	reader := newQueueReader(
		`{"event_type": "case.created"}`,
		`{"event_type": "user.login"}`,
		`{"event_type": "case.closed"}`,
	)
	c := NewConsumer(reader, target, nil, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	require.Eventually(t, func() bool {
		_, refreshed := target.counts()
		return refreshed == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	invalidated, _ := target.counts()
	assert.Equal(t, 2, invalidated)
}

func TestConsumerStopsOnCancel(t *testing.T) {
	c := NewConsumer(newQueueReader(), &fakeTarget{}, nil, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
