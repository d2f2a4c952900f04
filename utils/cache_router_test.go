package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCacheRouter(t *testing.T) {
	tests := []struct {
		name      string
		cacheTime int
		want      string
	}{
		{"no cache", CacheNoCache, "no-cache"},
		{"custom", CacheCustom, ""},
		{"one hour", 3600, "private, max-age=3600"},
		{"one week", CacheWeek, "private, max-age=604800"},
	}
	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use((&CacheRouter{CacheTime: tt.cacheTime}).Handler())
			router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
			assert.Equal(t, tt.want, w.Header().Get("Cache-Control"))
		})
	}
}

func TestCacheRouterGroupOverride(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use((&CacheRouter{CacheTime: CacheNoCache}).Handler())
	files := router.Group("/files/", (&CacheRouter{CacheTime: CacheWeek}).Handler())
	files.GET(":name", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/files/a.png", nil))
	assert.Equal(t, "private, max-age=604800", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api", nil))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}
