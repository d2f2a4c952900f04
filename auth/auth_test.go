package auth

import (
	"context"
	"encoding/json"
	"memorylane/apperr"
	"memorylane/lanes"
	"memorylane/models"
	"memorylane/repository"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]models.User

func (u fakeUsers) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// fakeOwners knows lane "lane-1" owned by alice
type fakeOwners struct{}

func (fakeOwners) RequireLaneOwner(ctx context.Context, laneID string, caller *lanes.Identity) (*models.MemoryLane, error) {
	if laneID != "lane-1" {
		return nil, apperr.NotFound("lane", "Memory lane not found")
	}
	if caller.ID != "alice" {
		return nil, apperr.Authorization("not owner", "")
	}
	return &models.MemoryLane{ID: laneID, UserID: "alice"}, nil
}

var users = fakeUsers{
	"alice": {ID: "alice", Name: "Alice", Email: "alice@example.com"},
	"bob":   {ID: "bob", Name: "Bob", Email: "bob@example.com"},
}

func newTestEngine(tokens *Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(sessions.Sessions("token", cookie.NewStore([]byte("test secret"))))
	authenticator := New(users, tokens, zerolog.Nop())
	router := Router{Base: engine, Auth: authenticator, Owners: fakeOwners{}}

	engine.GET("/login/:id", func(c *gin.Context) {
		if err := LoadSession(c).LoginUser(c.Param("id")); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	engine.GET("/logout", func(c *gin.Context) {
		LoadSession(c).LogoutUser()
		c.Status(http.StatusOK)
	})
	whoami := func(c *gin.Context, identity *lanes.Identity) {
		if identity == nil {
			c.JSON(http.StatusOK, gin.H{"id": ""})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": identity.ID})
	}
	router.GET("/public", Public, whoami)
	router.GET("/optional", Optional, whoami)
	router.GET("/private", Authenticated, whoami)
	router.PUT("/lanes/:id", LaneOwner, func(c *gin.Context, identity *lanes.Identity) {
		c.JSON(http.StatusOK, gin.H{"id": identity.ID, "lane": CurrentLane(c).ID})
	})
	router.POST("/memories", LaneOwner, func(c *gin.Context, identity *lanes.Identity) {
		body := struct {
			MemoryLaneID string `json:"memoryLaneId"`
			Title        string `json:"title"`
		}{}
		// The body was read by the guard already
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": identity.ID, "lane": CurrentLane(c).ID, "title": body.Title})
	})
	router.GET("/lane-files", LaneOwner, func(c *gin.Context, identity *lanes.Identity) {
		c.JSON(http.StatusOK, gin.H{"id": identity.ID, "lane": CurrentLane(c).ID})
	})
	return engine
}

func login(t *testing.T, engine *gin.Engine, userID string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+userID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

type response struct {
	ID    string `json:"id"`
	Lane  string `json:"lane"`
	Title string `json:"title"`
	Error string `json:"error"`
}

func do(t *testing.T, engine *gin.Engine, req *http.Request, cookies []*http.Cookie) (int, response) {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	r := response{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	}
	return w.Code, r
}

func TestGuards(t *testing.T) {
	engine := newTestEngine(nil)
	aliceCookies := login(t, engine, "alice")
	bobCookies := login(t, engine, "bob")
	ghostCookies := login(t, engine, "ghost")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		cookies    []*http.Cookie
		wantStatus int
		wantID     string
		wantLane   string
	}{
		{"public anonymous", http.MethodGet, "/public", "", nil, http.StatusOK, "", ""},
		{"public ignores session", http.MethodGet, "/public", "", aliceCookies, http.StatusOK, "", ""},
		{"optional anonymous", http.MethodGet, "/optional", "", nil, http.StatusOK, "", ""},
		{"optional with session", http.MethodGet, "/optional", "", aliceCookies, http.StatusOK, "alice", ""},
		{"private anonymous", http.MethodGet, "/private", "", nil, http.StatusUnauthorized, "", ""},
		{"private unknown user", http.MethodGet, "/private", "", ghostCookies, http.StatusUnauthorized, "", ""},
		{"private with session", http.MethodGet, "/private", "", bobCookies, http.StatusOK, "bob", ""},
		{"owner by path", http.MethodPut, "/lanes/lane-1", "", aliceCookies, http.StatusOK, "alice", "lane-1"},
		{"not owner", http.MethodPut, "/lanes/lane-1", "", bobCookies, http.StatusForbidden, "", ""},
		{"owner anonymous", http.MethodPut, "/lanes/lane-1", "", nil, http.StatusUnauthorized, "", ""},
		{"missing lane", http.MethodPut, "/lanes/lane-2", "", aliceCookies, http.StatusNotFound, "", ""},
		{"owner by body", http.MethodPost, "/memories", `{"memoryLaneId":"lane-1","title":"Beach Day"}`, aliceCookies, http.StatusOK, "alice", "lane-1"},
		{"owner by body id", http.MethodPost, "/memories", `{"id":"lane-1","title":"Beach Day"}`, aliceCookies, http.StatusOK, "alice", "lane-1"},
		{"owner by query", http.MethodGet, "/lane-files?memoryLaneId=lane-1", "", aliceCookies, http.StatusOK, "alice", "lane-1"},
		{"not owner by query", http.MethodGet, "/lane-files?id=lane-1", "", bobCookies, http.StatusForbidden, "", ""},
		{"no lane id", http.MethodPost, "/memories", `{"title":"Beach Day"}`, aliceCookies, http.StatusBadRequest, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			status, r := do(t, engine, req, tt.cookies)
			assert.Equal(t, tt.wantStatus, status)
			if status != http.StatusOK {
				assert.NotEmpty(t, r.Error)
				return
			}
			assert.Equal(t, tt.wantID, r.ID)
			assert.Equal(t, tt.wantLane, r.Lane)
		})
	}
}

func TestGuardErrorMessages(t *testing.T) {
	engine := newTestEngine(nil)
	_, r := do(t, engine, httptest.NewRequest(http.MethodGet, "/private", nil), nil)
	assert.Equal(t, "You must be logged in to access this resource", r.Error)

	_, r = do(t, engine, httptest.NewRequest(http.MethodPut, "/lanes/lane-2", nil), login(t, engine, "alice"))
	assert.Equal(t, "Memory lane not found", r.Error)
}

func TestLogout(t *testing.T) {
	engine := newTestEngine(nil)
	cookies := login(t, engine, "alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	status, _ := do(t, engine, httptest.NewRequest(http.MethodGet, "/private", nil), w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBearerToken(t *testing.T) {
	tokens := NewTokens("jwt secret", time.Hour)
	engine := newTestEngine(tokens)

	token, expiresAt, err := tokens.Issue(lanes.Identity{ID: "bob", Name: "Bob"}, time.Now())
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, r := do(t, engine, req, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", r.ID)

	// Session wins over the token
	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, r = do(t, engine, req, login(t, engine, "alice"))
	assert.Equal(t, "alice", r.ID)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	status, _ = do(t, engine, req, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBearerDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewTokens("", time.Hour))

	issued, _, err := NewTokens("jwt secret", time.Hour).Issue(lanes.Identity{ID: "bob"}, time.Now())
	require.NoError(t, err)
	engine := newTestEngine(nil)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+issued)
	status, _ := do(t, engine, req, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenParse(t *testing.T) {
	tokens := NewTokens("jwt secret", time.Hour)
	identity := lanes.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}

	valid, _, err := tokens.Issue(identity, time.Now())
	require.NoError(t, err)
	claims, err := tokens.Parse(valid)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)

	expired, _, err := tokens.Issue(identity, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.Error(t, err)

	foreign, _, err := NewTokens("other secret", time.Hour).Issue(identity, time.Now())
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.Error(t, err)
}
