// Package auth resolves the caller of a request and guards routes with it.
// A caller is identified by the session cookie or, when configured, by a
// bearer token.
package auth

import (
	"context"
	"memorylane/apperr"
	"memorylane/lanes"
	"memorylane/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
)

const (
	identityKey = "identity"
	resolvedKey = "identity_resolved"
	laneKey     = "lane"
)

// LaneIDFields are the request fields a lane id is read from, canonical first
var LaneIDFields = []string{"memoryLaneId", "id"}

type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type LaneOwnerChecker interface {
	RequireLaneOwner(ctx context.Context, laneID string, caller *lanes.Identity) (*models.MemoryLane, error)
}

type Authenticator struct {
	users  UserStore
	tokens *Tokens
	log    zerolog.Logger
}

func New(users UserStore, tokens *Tokens, log zerolog.Logger) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, log: log}
}

func (a *Authenticator) Tokens() *Tokens {
	return a.tokens
}

func identityOf(user *models.User) *lanes.Identity {
	return &lanes.Identity{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (a *Authenticator) lookup(ctx context.Context, userID string) *lanes.Identity {
	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		a.log.Debug().Err(err).Str("userId", userID).Msg("session user not found")
		return nil
	}
	return identityOf(user)
}

// Identity resolves the caller once per request, nil for anonymous callers
func (a *Authenticator) Identity(c *gin.Context) *lanes.Identity {
	if c.GetBool(resolvedKey) {
		return CurrentIdentity(c)
	}
	var identity *lanes.Identity
	if userID := LoadSession(c).UserID(); userID != "" {
		identity = a.lookup(c.Request.Context(), userID)
	}
	if identity == nil && a.tokens != nil {
		if token := ExtractBearer(c); token != "" {
			if claims, err := a.tokens.Parse(token); err == nil {
				identity = a.lookup(c.Request.Context(), claims.Subject)
			} else {
				a.log.Debug().Err(err).Msg("rejected bearer token")
			}
		}
	}
	c.Set(resolvedKey, true)
	c.Set(identityKey, identity)
	return identity
}

// CurrentIdentity returns the identity a guard injected into the context
func CurrentIdentity(c *gin.Context) *lanes.Identity {
	identity, _ := c.Get(identityKey)
	id, _ := identity.(*lanes.Identity)
	return id
}

// CurrentLane returns the lane resolved by RequireLaneOwner
func CurrentLane(c *gin.Context) *models.MemoryLane {
	lane, _ := c.Get(laneKey)
	l, _ := lane.(*models.MemoryLane)
	return l
}

func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.UserMessage(err)})
}

// RequireAuthenticated rejects anonymous callers
func (a *Authenticator) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.Identity(c) == nil {
			AbortWithError(c, apperr.Unauthenticated())
			return
		}
		c.Next()
	}
}

// CheckAuthOrPublic resolves the caller if there is one and never rejects
func (a *Authenticator) CheckAuthOrPublic() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.Identity(c)
		c.Next()
	}
}

// LaneIDFromRequest looks for a lane id in the path, the query string and
// then a JSON body
func LaneIDFromRequest(c *gin.Context) string {
	for _, field := range LaneIDFields {
		if id := c.Param(field); id != "" {
			return id
		}
	}
	for _, field := range LaneIDFields {
		if id := c.Query(field); id != "" {
			return id
		}
	}
	if c.Request.Body == nil || c.ContentType() != binding.MIMEJSON {
		return ""
	}
	body := map[string]any{}
	if c.ShouldBindBodyWith(&body, binding.JSON) != nil {
		return ""
	}
	for _, field := range LaneIDFields {
		if id, ok := body[field].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// RequireLaneOwner rejects callers that do not own the lane of the request
func (a *Authenticator) RequireLaneOwner(owners LaneOwnerChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := a.Identity(c)
		if identity == nil {
			AbortWithError(c, apperr.Unauthenticated())
			return
		}
		laneID := LaneIDFromRequest(c)
		if laneID == "" {
			AbortWithError(c, apperr.Validation("missing lane id", "Memory lane id is required"))
			return
		}
		lane, err := owners.RequireLaneOwner(c.Request.Context(), laneID, identity)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(laneKey, lane)
		c.Next()
	}
}
