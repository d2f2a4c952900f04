// Package validation holds the shape and range rules for lanes, memories and
// uploaded images. Every rule returns nil when the value is valid or an error
// whose message can be shown to the user as is.
package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	LaneNameMin = 3
	LaneNameMax = 100

	TitleMin   = 3
	TitleMax   = 100
	ContentMin = 10
	ContentMax = 1000

	MaxFileSize = 5 * 1024 * 1024
	// Decoded payloads may differ from the declared size by this many bytes
	SizeTolerance = 100

	DateLayout = "2006-01-02"
)

var AllowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

var ErrSizeMismatch = errors.New("File size mismatch between reported and actual size")

// FileInfo describes a raw file handed over by a client
type FileInfo struct {
	Name string
	Type string
	Size int64
}

// EncodedFile is a transport encoded upload with its declared metadata
type EncodedFile struct {
	Data string `json:"data"`
	Type string `json:"type"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func length(v string) int {
	return utf8.RuneCountInString(v)
}

func lengthBetween(field, v string, min, max int) error {
	n := length(v)
	if n < min {
		return fmt.Errorf("%s must be at least %d characters", field, min)
	}
	if n > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

func LaneName(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("Name is required")
	}
	return lengthBetween("Name", v, LaneNameMin, LaneNameMax)
}

func Title(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("Title is required")
	}
	return lengthBetween("Title", v, TitleMin, TitleMax)
}

func Content(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("Content is required")
	}
	return lengthBetween("Content", v, ContentMin, ContentMax)
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp and returns
// the calendar date at UTC midnight.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("Date is required")
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("Date must be a valid date")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func Date(v string) error {
	_, err := ParseDate(v)
	return err
}

func ImageType(mimeType string) error {
	for _, allowed := range AllowedImageTypes {
		if mimeType == allowed {
			return nil
		}
	}
	return fmt.Errorf("File type must be one of: %s", strings.Join(AllowedImageTypes, ", "))
}

func ImageSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("File size must be less than %dMB", MaxFileSize/1024/1024)
	}
	return nil
}

// ImageFile checks a raw file handle
func ImageFile(f *FileInfo) error {
	if f == nil {
		return errors.New("Image is required")
	}
	if err := ImageSize(f.Size); err != nil {
		return err
	}
	return ImageType(f.Type)
}

// ImageMetadata checks the metadata declared next to an encoded payload
func ImageMetadata(f EncodedFile) error {
	if f.Data == "" {
		return errors.New("Image is required")
	}
	return ImageFile(&FileInfo{Name: f.Name, Type: f.Type, Size: f.Size})
}

// DecodeImage decodes a base64 payload, tolerating a data URL prefix
func DecodeImage(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, errors.New("Image data is not valid base64")
	}
	return decoded, nil
}

func DecodedSize(decoded, declared int64) error {
	diff := decoded - declared
	if diff < 0 {
		diff = -diff
	}
	if diff > SizeTolerance {
		return ErrSizeMismatch
	}
	return nil
}
