package lanes

import (
	"context"
	"errors"
	"fmt"
	"memorylane/apperr"
	"memorylane/models"
	"memorylane/repository"
	"memorylane/storage"
	"memorylane/utils"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// normalizePage applies the defaults for zero values and rejects the rest
func normalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if page < 1 {
		return 0, 0, apperr.Validation("invalid page", "Page must be at least 1")
	}
	if limit < 1 || limit > MaxPageSize {
		return 0, 0, apperr.Validation("invalid limit", fmt.Sprintf("Limit must be between 1 and %d", MaxPageSize))
	}
	return page, limit, nil
}

func (s *Service) lanePage(ctx context.Context, filter repository.LaneFilter, page, limit int) (*LanePage, error) {
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}
	lanes, err := s.repo.ListLanes(ctx, filter, page, limit)
	if err != nil {
		return nil, dbError("list memory lanes", err)
	}
	ids := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		ids = append(ids, lane.ID)
	}
	counts, err := s.repo.MemoryCounts(ctx, ids)
	if err != nil {
		return nil, dbError("count memories", err)
	}
	result := &LanePage{
		Lanes: make([]LaneView, 0, len(lanes)),
		Page:  page,
		Limit: limit,
	}
	for i := range lanes {
		result.Lanes = append(result.Lanes, newLaneView(&lanes[i], counts[lanes[i].ID]))
	}
	if len(lanes) == limit {
		result.NextPage = page + 1
	}
	return result, nil
}

// ListPublished pages through published lanes, most recently updated first
func (s *Service) ListPublished(ctx context.Context, page, limit int) (*LanePage, error) {
	filter := repository.LaneFilter{Statuses: []models.LaneStatus{models.StatusPublished}}
	return s.lanePage(ctx, filter, page, limit)
}

// ListUserLanes never returns archived lanes. Drafts are only listed for
// the owner.
func (s *Service) ListUserLanes(ctx context.Context, userID string, caller *Identity, page, limit int) (*LanePage, error) {
	filter := repository.LaneFilter{
		UserID:   userID,
		Statuses: []models.LaneStatus{models.StatusPublished},
	}
	if caller != nil && caller.ID == userID {
		filter.Statuses = append(filter.Statuses, models.StatusDraft)
	}
	return s.lanePage(ctx, filter, page, limit)
}

func canView(lane *models.MemoryLane, caller *Identity) bool {
	switch lane.Status {
	case models.StatusPublished:
		return true
	case models.StatusDraft:
		return caller != nil && caller.ID == lane.UserID
	}
	return false
}

// GetLane returns the lane with its memories. Archived lanes are not found
// for anybody and drafts only for their owner.
func (s *Service) GetLane(ctx context.Context, laneID string, caller *Identity) (*LaneDetails, error) {
	lane, err := s.findLane(ctx, laneID)
	if err != nil {
		return nil, err
	}
	if !canView(lane, caller) {
		return nil, laneNotFound(laneID).With("status", string(lane.Status))
	}
	memories, err := s.repo.ListMemories(ctx, lane.ID)
	if err != nil {
		return nil, dbError("list memories", err)
	}
	result := &LaneDetails{
		LaneView: newLaneView(lane, int64(len(memories))),
		Memories: make([]MemoryView, 0, len(memories)),
	}
	for i := range memories {
		result.Memories = append(result.Memories, newMemoryView(&memories[i]))
	}
	var first, last time.Time
	if len(memories) > 0 {
		first, last = memories[0].Date, memories[len(memories)-1].Date
	}
	result.Subtitle = utils.GetDatesString(first, last)
	return result, nil
}

// OpenImage returns a stored image of the lane. Images of published lanes are
// public, all others are only served to the lane owner.
func (s *Service) OpenImage(ctx context.Context, laneID, blob string, caller *Identity) (*storage.Object, error) {
	if laneID == "" || blob == "" || strings.ContainsAny(blob, `/\`) || strings.Contains(laneID+blob, "..") {
		return nil, apperr.NotFound("invalid file path", "File not found")
	}
	lane, err := s.repo.FindLaneByID(ctx, laneID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("memory lane "+laneID+" not found", "File not found")
	} else if err != nil {
		return nil, dbError("find memory lane", err)
	}
	if lane.Status != models.StatusPublished && (caller == nil || caller.ID != lane.UserID) {
		return nil, apperr.Authorization("file of unpublished memory lane "+laneID, "You don't have permission to view this file")
	}
	key := laneID + "/" + blob
	obj, err := s.images.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("image "+key+" not found", "File not found")
	} else if err != nil {
		return nil, fmt.Errorf("open image %s: %w", key, err)
	}
	return obj, nil
}
