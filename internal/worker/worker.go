// Package worker handles queued domain events outside the request path.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
	"attendtrack/internal/queue"
)

// Refresher recomputes and caches one (course, student) summary.
type Refresher interface {
	Refresh(ctx context.Context, courseID, userID string) (model.Summary, error)
}

// EventObserver records the outcome of each handled event.
type EventObserver interface {
	ObserveEvent(eventType string, err error)
}

// Processor refreshes attendance summaries after marks.
type Processor struct {
	ledger Refresher
	obs    EventObserver
	log    *slog.Logger
}

// New builds a processor; obs may be nil.
func New(ledger Refresher, obs EventObserver, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{ledger: ledger, obs: obs, log: log.With("component", "worker")}
}

// Run consumes q until ctx is cancelled or the queue closes.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	p.log.InfoContext(ctx, "worker started, waiting for messages")
	for msg := range messages {
		err := p.Handle(ctx, msg)
		if p.obs != nil {
			p.obs.ObserveEvent(msg.Type, err)
		}
		if err != nil {
			p.log.ErrorContext(ctx, "event failed", "type", msg.Type, "error", err)
		}
	}
	p.log.InfoContext(ctx, "worker stopped")
	return nil
}

// Handle processes one message. Unknown types are ignored. A course or student
// deleted since the mark is not an error.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceMarked {
		p.log.DebugContext(ctx, "ignoring message", "type", msg.Type)
		return nil
	}
	evt, err := queue.DecodeAttendanceMarked(msg)
	if err != nil {
		return err
	}
	sum, err := p.ledger.Refresh(ctx, evt.CourseID, evt.StudentID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.log.InfoContext(ctx, "skipping stale event", "course_id", evt.CourseID, "student_id", evt.StudentID)
		return nil
	}
	if err != nil {
		return err
	}
	if sum.Standing == model.StandingCritical {
		p.log.WarnContext(ctx, "attendance below warning threshold",
			"course_id", sum.CourseID,
			"student_id", sum.StudentID,
			"percentage", sum.Percentage,
		)
	}
	return nil
}
