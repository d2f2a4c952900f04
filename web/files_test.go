package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"memorylane/auth"
	"memorylane/lanes"
	"memorylane/models"
	"memorylane/repository"
	"memorylane/storage"
	"memorylane/validation"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type filesEnv struct {
	engine  *gin.Engine
	service *lanes.Service
	tokens  *auth.Tokens
	owner   lanes.Identity
	lane    *lanes.LaneView
	memory  *lanes.MemoryView
	picture []byte
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		img.Set(x, 50, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newFilesEnv(t *testing.T) *filesEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, models.Init(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := repository.New(db)
	store := storage.NewMemoryStorage(&storage.Bucket{StorageType: storage.StorageTypeMemory})
	service := lanes.NewService(repo, storage.NewImageStore(store, zerolog.Nop()), zerolog.Nop())

	user, err := repo.CreateUser(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)
	owner := lanes.Identity{ID: user.ID, Name: user.Name, Email: user.Email}

	lane, err := service.CreateLane(ctx, "Summer 2024", &owner)
	require.NoError(t, err)
	picture := testPNG(t)
	memory, err := service.CreateMemory(ctx, lane.ID, lanes.NewMemory{
		MemoryFields: lanes.MemoryFields{Title: "Beach Day", Content: "We spent the afternoon by the sea.", Date: "2024-07-01"},
		File: validation.EncodedFile{
			Data: base64.StdEncoding.EncodeToString(picture),
			Type: "image/png",
			Name: "beach.png",
			Size: int64(len(picture)),
		},
	}, &owner)
	require.NoError(t, err)

	tokens := auth.NewTokens("test jwt secret", time.Hour)
	engine := gin.New()
	engine.Use(sessions.Sessions("token", cookie.NewStore([]byte("test secret"))))
	router := &auth.Router{Base: engine, Auth: auth.New(repo, tokens, zerolog.Nop()), Owners: service}
	files := &Files{Lanes: service, Log: zerolog.Nop()}
	files.Register(router)
	engine.GET("/robots.txt", DisallowRobots)

	return &filesEnv{engine: engine, service: service, tokens: tokens, owner: owner, lane: lane, memory: memory, picture: picture}
}

func (e *filesEnv) get(t *testing.T, path string, identity *lanes.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if identity != nil {
		token, _, err := e.tokens.Issue(*identity, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *filesEnv) publish(t *testing.T) {
	t.Helper()
	_, err := e.service.ChangeStatus(context.Background(), e.lane.ID, models.StatusPublished, &e.owner)
	require.NoError(t, err)
}

func TestFileFetchAccess(t *testing.T) {
	env := newFilesEnv(t)
	url := env.memory.Image

	w := env.get(t, url, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	w = env.get(t, url, &env.owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, env.picture, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=604800", w.Header().Get("Cache-Control"))

	env.publish(t)
	w = env.get(t, url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, env.picture, w.Body.Bytes())
}

func TestFileFetchNotFound(t *testing.T) {
	env := newFilesEnv(t)
	env.publish(t)

	tests := []struct {
		name string
		path string
	}{
		{"unknown lane", "/files/" + uuid.NewString() + "/x.png"},
		{"unknown blob", "/files/" + env.lane.ID + "/missing.png"},
		{"dot segments", "/files/" + env.lane.ID + "/..png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, tt.path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Contains(t, w.Body.String(), "File not found")
			assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		})
	}
}

func TestFileFetchThumbnail(t *testing.T) {
	env := newFilesEnv(t)
	env.publish(t)

	w := env.get(t, env.memory.Image+"?size=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	thumb, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 50, thumb.Bounds().Dx())
	assert.Equal(t, 25, thumb.Bounds().Dy())

	for _, size := range []string{"8", "4096", "big"} {
		w = env.get(t, env.memory.Image+"?size="+size, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, size)
	}
}

func TestFileFetchDownload(t *testing.T) {
	env := newFilesEnv(t)
	env.publish(t)

	w := env.get(t, env.memory.Image+"?download=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="beach.png"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(env.memory.Image, lanes.FilesPrefix+env.lane.ID+"/"))
}

func TestDisallowRobots(t *testing.T) {
	env := newFilesEnv(t)
	w := env.get(t, "/robots.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User-agent: *\nDisallow: /\n", w.Body.String())
}
