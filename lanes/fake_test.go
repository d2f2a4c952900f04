package lanes

import (
	"context"
	"errors"
	"memorylane/events"
	"memorylane/models"
	"memorylane/repository"
	"memorylane/storage"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository
type fakeRepo struct {
	mu       sync.Mutex
	lanes    map[string]models.MemoryLane
	memories map[string]models.Memory

	insertMemoryErr error
	updateLaneErr   error
	laneUpdates     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		lanes:    map[string]models.MemoryLane{},
		memories: map[string]models.Memory{},
	}
}

func (r *fakeRepo) FindLaneByID(ctx context.Context, id string) (*models.MemoryLane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lane, ok := r.lanes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &lane, nil
}

func (r *fakeRepo) FindMemoryByID(ctx context.Context, id string) (*models.Memory, *models.MemoryLane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	memory, ok := r.memories[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	lane, ok := r.lanes[memory.MemoryLaneID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	return &memory, &lane, nil
}

func (r *fakeRepo) InsertLane(ctx context.Context, lane *models.MemoryLane) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lane.ID == "" {
		lane.ID = uuid.NewString()
	}
	r.lanes[lane.ID] = *lane
	return nil
}

func (r *fakeRepo) UpdateLane(ctx context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateLaneErr != nil {
		return r.updateLaneErr
	}
	lane := r.lanes[id]
	for k, v := range fields {
		switch k {
		case "name":
			lane.Name = v.(string)
		case "status":
			lane.Status = v.(models.LaneStatus)
		case "updated_at":
			lane.UpdatedAt = v.(time.Time)
		}
	}
	r.lanes[id] = lane
	r.laneUpdates++
	return nil
}

func (r *fakeRepo) DeleteLane(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lanes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.lanes, id)
	for memoryID, m := range r.memories {
		if m.MemoryLaneID == id {
			delete(r.memories, memoryID)
		}
	}
	return nil
}

func (r *fakeRepo) InsertMemory(ctx context.Context, memory *models.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertMemoryErr != nil {
		return r.insertMemoryErr
	}
	if memory.ID == "" {
		memory.ID = uuid.NewString()
	}
	memory.CreatedAt = time.Now()
	r.memories[memory.ID] = *memory
	return nil
}

func (r *fakeRepo) UpdateMemory(ctx context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	memory := r.memories[id]
	for k, v := range fields {
		switch k {
		case "title":
			memory.Title = v.(string)
		case "content":
			memory.Content = v.(string)
		case "date":
			memory.Date = v.(time.Time)
		}
	}
	r.memories[id] = memory
	return nil
}

func (r *fakeRepo) DeleteMemory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.memories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.memories, id)
	return nil
}

func (r *fakeRepo) CountMemories(ctx context.Context, laneID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.memories {
		if m.MemoryLaneID == laneID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) ListLanes(ctx context.Context, filter repository.LaneFilter, page, limit int) ([]models.MemoryLane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []models.MemoryLane{}
	for _, lane := range r.lanes {
		if filter.UserID != "" && lane.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 {
			ok := false
			for _, status := range filter.Statuses {
				ok = ok || lane.Status == status
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, lane)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.MemoryLane{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *fakeRepo) ListMemories(ctx context.Context, laneID string) ([]models.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.Memory{}
	for _, m := range r.memories {
		if m.MemoryLaneID == laneID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (r *fakeRepo) MemoryCounts(ctx context.Context, laneIDs []string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, id := range laneIDs {
		count, _ := r.CountMemories(ctx, id)
		if count > 0 {
			counts[id] = count
		}
	}
	return counts, nil
}

// flakyStorage fails the first failures Put calls
type flakyStorage struct {
	*storage.MemoryStorage
	failures int
	puts     int
}

func newFlakyStorage(failures int) *flakyStorage {
	return &flakyStorage{
		MemoryStorage: storage.NewMemoryStorage(&storage.Bucket{StorageType: storage.StorageTypeMemory}),
		failures:      failures,
	}
}

func (s *flakyStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	s.puts++
	if s.puts <= s.failures {
		return errors.New("object store unavailable")
	}
	return s.MemoryStorage.Put(ctx, key, data, contentType, metadata)
}

// recordingPublisher keeps every published invalidation
type recordingPublisher struct {
	mu    sync.Mutex
	items []events.Invalidation
}

func (p *recordingPublisher) Publish(ctx context.Context, inv events.Invalidation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, inv)
	return nil
}
