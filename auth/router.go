package auth

import (
	"memorylane/lanes"

	"github.com/gin-gonic/gin"
)

// Guard selects the check a route runs before its handler
type Guard uint8

const (
	Public Guard = iota
	Optional
	Authenticated
	LaneOwner
)

// HandlerFunc receives the caller resolved by the route guard, nil when anonymous
type HandlerFunc func(c *gin.Context, identity *lanes.Identity)

// Router is a wrapper class that adds auth checks + identity pre-loading
type Router struct {
	Base   gin.IRouter
	Auth   *Authenticator
	Owners LaneOwnerChecker
}

func (r *Router) guard(guard Guard) gin.HandlerFunc {
	switch guard {
	case Optional:
		return r.Auth.CheckAuthOrPublic()
	case Authenticated:
		return r.Auth.RequireAuthenticated()
	case LaneOwner:
		return r.Auth.RequireLaneOwner(r.Owners)
	}
	return func(c *gin.Context) { c.Next() }
}

func (r *Router) Handle(method, path string, guard Guard, handler HandlerFunc) {
	r.Base.Handle(method, path, r.guard(guard), func(c *gin.Context) {
		handler(c, CurrentIdentity(c))
	})
}

func (r *Router) GET(path string, guard Guard, handler HandlerFunc) {
	r.Handle("GET", path, guard, handler)
}

func (r *Router) POST(path string, guard Guard, handler HandlerFunc) {
	r.Handle("POST", path, guard, handler)
}

func (r *Router) PUT(path string, guard Guard, handler HandlerFunc) {
	r.Handle("PUT", path, guard, handler)
}

func (r *Router) DELETE(path string, guard Guard, handler HandlerFunc) {
	r.Handle("DELETE", path, guard, handler)
}
