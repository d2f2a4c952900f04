package storage

import (
	"context"
	"memorylane/apperr"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// WaitFunc blocks before the next attempt
type WaitFunc func(ctx context.Context, d time.Duration) error

// ImageStore stores image blobs with retry and exponential backoff: after the
// n-th failed attempt it waits baseDelay * 2^(n-1) before trying again.
type ImageStore struct {
	store     StorageAPI
	log       zerolog.Logger
	attempts  int
	baseDelay time.Duration
	wait      WaitFunc
}

type ImageStoreOption func(*ImageStore)

func WithAttempts(n int) ImageStoreOption {
	return func(s *ImageStore) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) ImageStoreOption {
	return func(s *ImageStore) { s.baseDelay = d }
}

func WithWait(wait WaitFunc) ImageStoreOption {
	return func(s *ImageStore) { s.wait = wait }
}

func NewImageStore(store StorageAPI, log zerolog.Logger, opts ...ImageStoreOption) *ImageStore {
	s := &ImageStore{
		store:     store,
		log:       log,
		attempts:  DefaultAttempts,
		baseDelay: DefaultBaseDelay,
		wait:      sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store writes the blob under key and returns the stored key
func (s *ImageStore) Store(ctx context.Context, data []byte, key, contentType string, metadata map[string]string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		lastErr = s.store.Put(ctx, key, data, contentType, metadata)
		if lastErr == nil {
			uploadAttempts.WithLabelValues("success").Inc()
			return key, nil
		}
		uploadAttempts.WithLabelValues("failure").Inc()
		s.log.Warn().Err(lastErr).Str("key", key).Int("attempt", attempt).Msg("image store attempt failed")
		if attempt == s.attempts {
			break
		}
		if err := s.wait(ctx, s.baseDelay<<(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}
	uploadsExhausted.Inc()
	s.log.Error().Err(lastErr).Str("key", key).Msg("image store failed")
	return "", apperr.FileUpload("failed to store image "+key, "Failed to upload image. Please try again.").
		Wrap(lastErr).
		With("key", key)
}

func (s *ImageStore) Open(ctx context.Context, key string) (*Object, error) {
	return s.store.Get(ctx, key)
}

func (s *ImageStore) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}
