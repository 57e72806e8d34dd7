package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e Entry) error
}

// Service writes audit entries. Record returns the write error for callers
// that care; RecordBestEffort logs and swallows it, which is the contract for
// reversal and other money flows where the primary result must not depend on
// the compliance trail.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, clock: time.Now}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Insert(ctx, e)
}

func (s *Service) RecordBestEffort(ctx context.Context, e Entry) {
	if err := s.Record(ctx, e); err != nil {
		// Deliberate trade-off: a failed audit write leaves a gap in the
		// compliance trail instead of failing the money operation.
		s.log.ErrorContext(ctx, "audit write failed",
			slog.String("action_type", string(e.ActionType)),
			slog.String("admin_id", e.AdminID),
			slog.String("target_user_id", e.TargetUserID),
			slog.Any("error", err),
		)
	}
}
