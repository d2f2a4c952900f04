package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDatesString(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		min, max time.Time
		want     string
	}{
		{"empty", time.Time{}, time.Time{}, "empty :("},
		{"same day", d(2024, 7, 1), d(2024, 7, 1), "1 Jul 2024"},
		{"range", d(2024, 7, 1), d(2024, 8, 15), "1 Jul 2024 - 15 Aug 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetDatesString(tt.min, tt.max))
		})
	}
}

func TestRandTokens(t *testing.T) {
	a, b := Rand8BytesToBase62(), Rand8BytesToBase62()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, Rand16BytesToBase62())
	assert.Len(t, Sha512String("x"), 128)
}

func TestCreateThumb(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		img.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var src, dst bytes.Buffer
	require.NoError(t, png.Encode(&src, img))

	info, err := CreateThumb(100, &src, &dst)
	require.NoError(t, err)
	assert.EqualValues(t, 100, info.NewX)
	assert.EqualValues(t, 50, info.NewY)
	assert.EqualValues(t, 400, info.OldX)
	assert.Equal(t, int64(dst.Len()), info.ThumbSize)
}
