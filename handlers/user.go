package handlers

import (
	"errors"
	"memorylane/apperr"
	"memorylane/auth"
	"memorylane/lanes"
	"memorylane/models"
	"memorylane/repository"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const minPasswordLength = 8

type UserCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserLoginResponse struct {
	Error     string         `json:"error"`
	User      lanes.Identity `json:"user"`
	Token     string         `json:"token,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

func identityOf(user *models.User) lanes.Identity {
	return lanes.Identity{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (h *Handlers) UserRegister(c *gin.Context, identity *lanes.Identity) {
	r := UserCreateRequest{}
	if err := bindJSON(c, &r); err != nil {
		h.fail(c, err)
		return
	}
	if strings.TrimSpace(r.Name) == "" {
		h.fail(c, apperr.Validation("empty name", "Name is required"))
		return
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		h.fail(c, apperr.Validation("invalid email "+r.Email, "Email must be a valid email address"))
		return
	}
	if len(r.Password) < minPasswordLength {
		h.fail(c, apperr.Validation("short password", "Password must be at least 8 characters"))
		return
	}
	user, err := h.Users.CreateUser(c.Request.Context(), r.Name, r.Email, r.Password)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		h.fail(c, apperr.BusinessRule("create user: "+err.Error(), "This email is already registered").Wrap(err))
		return
	} else if err != nil {
		h.fail(c, apperr.Database("create user", "").Wrap(err))
		return
	}
	h.Log.Info().Str("userId", user.ID).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"error": "", "user": identityOf(user)})
}

func (h *Handlers) UserLogin(c *gin.Context, identity *lanes.Identity) {
	r := UserLoginRequest{}
	if err := bindJSON(c, &r); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.Users.Login(c.Request.Context(), r.Email, r.Password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		h.fail(c, apperr.Authorization("login failed for "+r.Email, "Invalid email or password").Wrap(apperr.ErrNoSession))
		return
	} else if err != nil {
		h.fail(c, apperr.Database("login", "").Wrap(err))
		return
	}
	if err = auth.LoadSession(c).LoginUser(user.ID); err != nil {
		h.fail(c, err)
		return
	}
	result := UserLoginResponse{User: identityOf(user)}
	if h.Tokens != nil {
		token, expiresAt, err := h.Tokens.Issue(result.User, time.Now())
		if err != nil {
			h.fail(c, err)
			return
		}
		result.Token = token
		result.ExpiresAt = &expiresAt
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) UserLogout(c *gin.Context, identity *lanes.Identity) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}

func (h *Handlers) UserStatus(c *gin.Context, identity *lanes.Identity) {
	if identity == nil {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "user": identity})
}
