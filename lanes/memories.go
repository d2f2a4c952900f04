package lanes

import (
	"context"
	"errors"
	"fmt"
	"memorylane/apperr"
	"memorylane/models"
	"memorylane/repository"
	"memorylane/validation"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var extensionByType = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type MemoryFields struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// NewMemory is a memory with its image as a base64 payload
type NewMemory struct {
	MemoryFields
	File validation.EncodedFile `json:"file"`
}

// MemoryPatch holds the memory fields to change, nil fields are left as they are
type MemoryPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Date    *string `json:"date"`
}

func (f MemoryFields) validate() (time.Time, error) {
	if err := validation.Title(f.Title); err != nil {
		return time.Time{}, validationError(err)
	}
	if err := validation.Content(f.Content); err != nil {
		return time.Time{}, validationError(err)
	}
	date, err := validation.ParseDate(f.Date)
	if err != nil {
		return time.Time{}, validationError(err)
	}
	return date, nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

// storageKey builds {laneId}/{unixMillis}-{token}.{ext}. The extension comes
// from the original file name and falls back to the content type.
func (s *Service) storageKey(laneID, fileName, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if !isAlnum(ext) {
		ext = extensionByType[contentType]
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d-%s.%s", laneID, s.now().UnixMilli(), s.token(), ext)
}

var storageKeyPattern = regexp.MustCompile(`^([^/]+)/[0-9]+-[0-9A-Za-z]+\.[0-9a-z]+$`)

// IsStorageKey reports whether key has the shape storageKey generates, with
// a uuid lane id
func IsStorageKey(key string) bool {
	m := storageKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	_, err := uuid.Parse(m[1])
	return err == nil && len(m[1]) == 36
}

// CreateMemory adds a memory to the caller's lane. The image is stored first;
// if the row cannot be written afterwards the stored image is removed again.
func (s *Service) CreateMemory(ctx context.Context, laneID string, in NewMemory, caller *Identity) (*MemoryView, error) {
	lane, err := s.RequireLaneOwner(ctx, laneID, caller)
	if err != nil {
		return nil, err
	}
	date, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err = validation.ImageMetadata(in.File); err != nil {
		return nil, validationError(err)
	}
	data, err := validation.DecodeImage(in.File.Data)
	if err != nil {
		return nil, validationError(err)
	}
	if err = validation.DecodedSize(int64(len(data)), in.File.Size); err != nil {
		return nil, apperr.FileUpload(err.Error(), err.Error()).
			Wrap(err).
			With("declared", in.File.Size).
			With("decoded", len(data))
	}
	return s.storeMemory(ctx, lane, caller, in.MemoryFields, date, in.File.Name, in.File.Type, data)
}

// CreateMemoryFromFile is CreateMemory for a raw uploaded file
func (s *Service) CreateMemoryFromFile(ctx context.Context, laneID string, fields MemoryFields, file validation.FileInfo, data []byte, caller *Identity) (*MemoryView, error) {
	lane, err := s.RequireLaneOwner(ctx, laneID, caller)
	if err != nil {
		return nil, err
	}
	date, err := fields.validate()
	if err != nil {
		return nil, err
	}
	if err = validation.ImageFile(&file); err != nil {
		return nil, validationError(err)
	}
	if err = validation.DecodedSize(int64(len(data)), file.Size); err != nil {
		return nil, apperr.FileUpload(err.Error(), err.Error()).Wrap(err)
	}
	return s.storeMemory(ctx, lane, caller, fields, date, file.Name, file.Type, data)
}

func (s *Service) storeMemory(ctx context.Context, lane *models.MemoryLane, caller *Identity, fields MemoryFields, date time.Time, fileName, contentType string, data []byte) (*MemoryView, error) {
	key := s.storageKey(lane.ID, fileName, contentType)
	metadata := map[string]string{
		"uploadedBy":   caller.ID,
		"memoryLaneId": lane.ID,
		"originalName": fileName,
	}
	storedKey, err := s.images.Store(ctx, data, key, contentType, metadata)
	if err != nil {
		return nil, err
	}
	memory := &models.Memory{
		MemoryLaneID: lane.ID,
		Title:        fields.Title,
		Content:      fields.Content,
		Date:         date,
		Image:        storedKey,
	}
	if err = s.repo.InsertMemory(ctx, memory); err != nil {
		// The request may be gone already, the cleanup must still run
		if delErr := s.images.Delete(context.WithoutCancel(ctx), storedKey); delErr != nil {
			s.log.Error().Err(delErr).Str("key", storedKey).Msg("failed to remove image of unsaved memory")
		}
		return nil, dbError("insert memory", err).With("key", storedKey)
	}
	s.log.Info().Str("memoryId", memory.ID).Str("laneId", lane.ID).Str("key", storedKey).Msg("memory created")
	s.invalidate(ctx, "memory.created", lane)

	view := newMemoryView(memory)
	return &view, nil
}

func (s *Service) requireMemoryOwner(ctx context.Context, memoryID string, caller *Identity) (*models.Memory, *models.MemoryLane, error) {
	if caller == nil {
		return nil, nil, apperr.Unauthenticated()
	}
	memory, lane, err := s.repo.FindMemoryByID(ctx, memoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, memoryNotFound(memoryID)
	} else if err != nil {
		return nil, nil, dbError("find memory", err)
	}
	if lane.UserID != caller.ID {
		return nil, nil, notOwner(caller, lane)
	}
	return memory, lane, nil
}

// UpdateMemory changes title, content and date. The image cannot be replaced.
func (s *Service) UpdateMemory(ctx context.Context, memoryID string, patch MemoryPatch, caller *Identity) (*MemoryView, error) {
	memory, lane, err := s.requireMemoryOwner(ctx, memoryID, caller)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if patch.Title != nil {
		if err = validation.Title(*patch.Title); err != nil {
			return nil, validationError(err)
		}
		fields["title"] = *patch.Title
		memory.Title = *patch.Title
	}
	if patch.Content != nil {
		if err = validation.Content(*patch.Content); err != nil {
			return nil, validationError(err)
		}
		fields["content"] = *patch.Content
		memory.Content = *patch.Content
	}
	if patch.Date != nil {
		date, err := validation.ParseDate(*patch.Date)
		if err != nil {
			return nil, validationError(err)
		}
		fields["date"] = date
		memory.Date = date
	}
	if len(fields) > 0 {
		if err = s.repo.UpdateMemory(ctx, memory.ID, fields); err != nil {
			return nil, dbError("update memory", err)
		}
		s.invalidate(ctx, "memory.updated", lane)
	}
	view := newMemoryView(memory)
	return &view, nil
}

// DeleteMemory removes the memory row. Its image is left for the orphan sweep.
func (s *Service) DeleteMemory(ctx context.Context, memoryID string, caller *Identity) error {
	memory, lane, err := s.requireMemoryOwner(ctx, memoryID, caller)
	if err != nil {
		return err
	}
	err = s.repo.DeleteMemory(ctx, memory.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return memoryNotFound(memory.ID)
	} else if err != nil {
		return dbError("delete memory", err)
	}
	s.log.Info().Str("memoryId", memory.ID).Str("laneId", lane.ID).Msg("memory deleted")
	s.invalidate(ctx, "memory.deleted", lane)
	return nil
}
