// Package lanes is the memory lane domain service. It owns the ownership
// rules, the publication state machine and the image upload path. Every
// operation receives the caller identity resolved by the auth guards, nil
// for anonymous callers.
package lanes

import (
	"context"
	"errors"
	"fmt"
	"memorylane/apperr"
	"memorylane/events"
	"memorylane/models"
	"memorylane/repository"
	"memorylane/storage"
	"memorylane/utils"
	"memorylane/validation"
	"time"

	"github.com/rs/zerolog"
)

// Identity is an authenticated caller
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository is the persistence the service needs, see repository.Repository
type Repository interface {
	FindLaneByID(ctx context.Context, id string) (*models.MemoryLane, error)
	FindMemoryByID(ctx context.Context, id string) (*models.Memory, *models.MemoryLane, error)
	InsertLane(ctx context.Context, lane *models.MemoryLane) error
	UpdateLane(ctx context.Context, id string, fields map[string]any) error
	DeleteLane(ctx context.Context, id string) error
	InsertMemory(ctx context.Context, memory *models.Memory) error
	UpdateMemory(ctx context.Context, id string, fields map[string]any) error
	DeleteMemory(ctx context.Context, id string) error
	CountMemories(ctx context.Context, laneID string) (int64, error)
	ListLanes(ctx context.Context, filter repository.LaneFilter, page, limit int) ([]models.MemoryLane, error)
	ListMemories(ctx context.Context, laneID string) ([]models.Memory, error)
	MemoryCounts(ctx context.Context, laneIDs []string) (map[string]int64, error)
}

type Service struct {
	repo   Repository
	images *storage.ImageStore
	events events.Publisher
	log    zerolog.Logger
	now    func() time.Time
	token  func() string
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokens replaces the random part of generated storage keys
func WithTokens(token func() string) Option {
	return func(s *Service) { s.token = token }
}

func NewService(repo Repository, images *storage.ImageStore, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		images: images,
		events: events.NewLogPublisher(log),
		log:    log,
		now:    time.Now,
		token:  utils.Rand8BytesToBase62,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func laneNotFound(id string) *apperr.Error {
	return apperr.NotFound("memory lane "+id+" not found", "Memory lane not found").With("laneId", id)
}

func memoryNotFound(id string) *apperr.Error {
	return apperr.NotFound("memory "+id+" not found", "Memory not found").With("memoryId", id)
}

func notOwner(caller *Identity, lane *models.MemoryLane) *apperr.Error {
	msg := fmt.Sprintf("user %s does not own memory lane %s", caller.ID, lane.ID)
	return apperr.Authorization(msg, "You don't have permission to modify this memory lane").With("laneId", lane.ID)
}

func dbError(op string, err error) *apperr.Error {
	return apperr.Database(op+" failed", "").Wrap(err)
}

func validationError(err error) *apperr.Error {
	return apperr.Validation(err.Error(), err.Error())
}

// stamp returns the next updatedAt value, strictly after prev
func (s *Service) stamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

func (s *Service) invalidate(ctx context.Context, reason string, lane *models.MemoryLane) {
	inv := events.Invalidation{
		Keys:   []string{events.LanesKey, events.LaneKey(lane.ID), events.UserLanesKey(lane.UserID)},
		Reason: reason,
		At:     s.now().UTC(),
	}
	if err := s.events.Publish(ctx, inv); err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Str("laneId", lane.ID).Msg("failed to publish invalidation")
	}
}

func (s *Service) findLane(ctx context.Context, laneID string) (*models.MemoryLane, error) {
	lane, err := s.repo.FindLaneByID(ctx, laneID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, laneNotFound(laneID)
	} else if err != nil {
		return nil, dbError("find memory lane", err)
	}
	return lane, nil
}

// RequireLaneOwner resolves the lane and fails unless the caller owns it
func (s *Service) RequireLaneOwner(ctx context.Context, laneID string, caller *Identity) (*models.MemoryLane, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated()
	}
	lane, err := s.findLane(ctx, laneID)
	if err != nil {
		return nil, err
	}
	if lane.UserID != caller.ID {
		return nil, notOwner(caller, lane)
	}
	return lane, nil
}

func (s *Service) CreateLane(ctx context.Context, name string, caller *Identity) (*LaneView, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated()
	}
	if err := validation.LaneName(name); err != nil {
		return nil, validationError(err)
	}
	now := s.stamp(time.Time{})
	lane := &models.MemoryLane{
		Name:      name,
		Status:    models.StatusDraft,
		UserID:    caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertLane(ctx, lane); err != nil {
		return nil, dbError("insert memory lane", err)
	}
	lane.User = models.User{ID: caller.ID, Name: caller.Name}
	s.log.Info().Str("laneId", lane.ID).Str("userId", caller.ID).Msg("memory lane created")
	s.invalidate(ctx, "lane.created", lane)

	view := newLaneView(lane, 0)
	return &view, nil
}

// updateLaneFields writes the given fields and always stamps updatedAt
func (s *Service) updateLaneFields(ctx context.Context, lane *models.MemoryLane, name *string, status *models.LaneStatus) error {
	updatedAt := s.stamp(lane.UpdatedAt)
	fields := map[string]any{"updated_at": updatedAt}
	if name != nil {
		fields["name"] = *name
	}
	if status != nil {
		fields["status"] = *status
	}
	if err := s.repo.UpdateLane(ctx, lane.ID, fields); err != nil {
		return dbError("update memory lane", err)
	}
	lane.UpdatedAt = updatedAt
	if name != nil {
		lane.Name = *name
	}
	if status != nil {
		lane.Status = *status
	}
	return nil
}

func (s *Service) laneView(ctx context.Context, lane *models.MemoryLane) (*LaneView, error) {
	count, err := s.repo.CountMemories(ctx, lane.ID)
	if err != nil {
		return nil, dbError("count memories", err)
	}
	view := newLaneView(lane, count)
	return &view, nil
}

// ChangeStatus moves the lane to the target status. Asking for the current
// status is a no-op and leaves updatedAt untouched.
func (s *Service) ChangeStatus(ctx context.Context, laneID string, target models.LaneStatus, caller *Identity) (*LaneView, error) {
	lane, err := s.RequireLaneOwner(ctx, laneID, caller)
	if err != nil {
		return nil, err
	}
	if lane.Status == target {
		return s.laneView(ctx, lane)
	}
	if err = s.checkTransition(ctx, lane, target); err != nil {
		return nil, err
	}
	from := lane.Status
	if err = s.updateLaneFields(ctx, lane, nil, &target); err != nil {
		return nil, err
	}
	s.log.Info().Str("laneId", lane.ID).Str("from", string(from)).Str("to", string(target)).Msg("memory lane status changed")
	s.invalidate(ctx, "lane.status", lane)
	return s.laneView(ctx, lane)
}

// LanePatch holds the lane fields to change, nil fields are left as they are
type LanePatch struct {
	Name   *string            `json:"name"`
	Status *models.LaneStatus `json:"status"`
}

func (s *Service) UpdateLane(ctx context.Context, laneID string, patch LanePatch, caller *Identity) (*LaneView, error) {
	lane, err := s.RequireLaneOwner(ctx, laneID, caller)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if err = validation.LaneName(*patch.Name); err != nil {
			return nil, validationError(err)
		}
	}
	status := patch.Status
	if status != nil {
		if !status.Valid() {
			return nil, invalidStatus(*status)
		}
		if *status == lane.Status {
			status = nil
		} else if err = s.checkTransition(ctx, lane, *status); err != nil {
			return nil, err
		}
	}
	if err = s.updateLaneFields(ctx, lane, patch.Name, status); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "lane.updated", lane)
	return s.laneView(ctx, lane)
}

// DeleteLane removes the lane and its memories. Stored images are left for
// the orphan sweep.
func (s *Service) DeleteLane(ctx context.Context, laneID string, caller *Identity) error {
	lane, err := s.RequireLaneOwner(ctx, laneID, caller)
	if err != nil {
		return err
	}
	err = s.repo.DeleteLane(ctx, lane.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return laneNotFound(lane.ID)
	} else if err != nil {
		return dbError("delete memory lane", err)
	}
	s.log.Info().Str("laneId", lane.ID).Str("userId", caller.ID).Msg("memory lane deleted")
	s.invalidate(ctx, "lane.deleted", lane)
	return nil
}
