package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
	"attendtrack/internal/queue"
)

type fakeLedger struct {
	mu    sync.Mutex
	calls []string
	sum   model.Summary
	err   error
}

func (f *fakeLedger) Refresh(_ context.Context, courseID, userID string) (model.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, courseID+"/"+userID)
	s := f.sum
	s.CourseID, s.StudentID = courseID, userID
	return s, f.err
}

type countingObserver struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (o *countingObserver) ObserveEvent(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func marked(t *testing.T, course, student string) queue.Message {
	t.Helper()
	msg, err := queue.NewAttendanceMarked(model.Attendance{
		ID: "a1", CourseID: course, StudentID: student,
		Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Status: model.StatusAbsent,
	})
	require.NoError(t, err)
	return msg
}

func TestHandleWarnsOnCriticalStanding(t *testing.T) {
	var buf bytes.Buffer
	ledger := &fakeLedger{sum: model.Summary{Percentage: 20, Standing: model.StandingCritical}}
	p := New(ledger, nil, slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.Handle(context.Background(), marked(t, "c1", "u1")))
	assert.Equal(t, []string{"c1/u1"}, ledger.calls)
	assert.Contains(t, buf.String(), "attendance below warning threshold")

	buf.Reset()
	ledger.sum.Standing = model.StandingGood
	require.NoError(t, p.Handle(context.Background(), marked(t, "c1", "u1")))
	assert.NotContains(t, buf.String(), "below warning")
}

func TestHandleSkipsStaleAndUnknown(t *testing.T) {
	ledger := &fakeLedger{err: apperr.CourseNotFound("c1")}
	p := New(ledger, nil, nil)

	assert.NoError(t, p.Handle(context.Background(), marked(t, "c1", "u1")))
	assert.NoError(t, p.Handle(context.Background(), queue.Message{Type: "other"}))
	assert.Error(t, p.Handle(context.Background(), queue.Message{Type: queue.TypeAttendanceMarked, Body: []byte("{")}))

	ledger.err = errors.New("store down")
	assert.Error(t, p.Handle(context.Background(), marked(t, "c1", "u1")))
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	q := queue.NewInMemory(4)
	ledger := &fakeLedger{sum: model.Summary{Standing: model.StandingGood}}
	obs := &countingObserver{}
	p := New(ledger, obs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, q) }()

	require.NoError(t, q.Publish(ctx, marked(t, "c1", "u1")))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeAttendanceMarked, Body: []byte("not json")}))

	assert.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return obs.ok == 1 && obs.failed == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
