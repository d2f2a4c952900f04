package handlers

import (
	"context"
	"memorylane/apperr"
	"memorylane/auth"
	"memorylane/lanes"
	"memorylane/models"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
)

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined responses
	OKResponse       = Response{}
	NotFoundResponse = Response{"Not Found"}
)

type UserStore interface {
	CreateUser(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
}

type Handlers struct {
	Lanes  *lanes.Service
	Users  UserStore
	Tokens *auth.Tokens // nil disables bearer tokens
	Log    zerolog.Logger
}

// RespondError writes the user message of err with its status. Server side
// failures are logged since their message is not shown. Error responses are
// never cached.
func RespondError(c *gin.Context, log zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	c.Header("cache-control", "no-cache")
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, Response{Error: apperr.UserMessage(err)})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	RespondError(c, h.Log, err)
}

// bindJSON reads the body through the context cache, guards may have read it already
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil {
		return apperr.Validation("invalid request body: "+err.Error(), "Invalid request body").Wrap(err)
	}
	return nil
}

// Register mounts all JSON routes
func (h *Handlers) Register(r *auth.Router) {
	r.GET("/lanes", auth.Public, h.LaneListPublished)
	r.POST("/lanes", auth.Authenticated, h.LaneCreate)
	r.GET("/lanes/:id", auth.Optional, h.LaneGet)
	r.PUT("/lanes/:id", auth.LaneOwner, h.LaneUpdate)
	r.DELETE("/lanes/:id", auth.LaneOwner, h.LaneDelete)
	r.POST("/lanes/:id/status", auth.LaneOwner, h.LaneChangeStatus)
	r.POST("/lanes/:id/publish", auth.LaneOwner, h.LaneSetStatus(models.StatusPublished))
	r.POST("/lanes/:id/unpublish", auth.LaneOwner, h.LaneSetStatus(models.StatusDraft))
	r.POST("/lanes/:id/archive", auth.LaneOwner, h.LaneSetStatus(models.StatusArchived))
	r.POST("/lanes/:id/restore", auth.LaneOwner, h.LaneSetStatus(models.StatusDraft))
	r.POST("/lanes/:id/memories", auth.LaneOwner, h.MemoryCreate)
	r.POST("/lanes/:id/memories/upload", auth.LaneOwner, h.MemoryUpload)

	r.PUT("/memories/:memoryId", auth.Authenticated, h.MemoryUpdate)
	r.DELETE("/memories/:memoryId", auth.Authenticated, h.MemoryDelete)

	r.GET("/users/:id/lanes", auth.Optional, h.UserLanes)
	r.GET("/user/lanes", auth.Authenticated, h.OwnLanes)
	r.POST("/user/register", auth.Public, h.UserRegister)
	r.POST("/user/login", auth.Public, h.UserLogin)
	r.POST("/user/logout", auth.Public, h.UserLogout)
	r.GET("/user/status", auth.Optional, h.UserStatus)
}
