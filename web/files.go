package web

import (
	"bytes"
	"memorylane/apperr"
	"memorylane/auth"
	"memorylane/handlers"
	"memorylane/lanes"
	"memorylane/utils"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	MinThumbSize = 16
	MaxThumbSize = 2048
)

type FileFetchRequest struct {
	Size     uint `form:"size"`
	Download int  `form:"download"`
}

// Files serves stored memory images under lanes.FilesPrefix
type Files struct {
	Lanes *lanes.Service
	Log   zerolog.Logger
}

// Register mounts the file route with a week of private caching. Failed
// fetches reset it, see handlers.RespondError.
func (f *Files) Register(r *auth.Router) {
	cached := r.Base.Group(lanes.FilesPrefix, (&utils.CacheRouter{CacheTime: utils.CacheWeek}).Handler())
	files := &auth.Router{Base: cached, Auth: r.Auth, Owners: r.Owners}
	files.GET(":laneId/:blob", auth.Optional, f.FileFetch)
}

func (f *Files) FileFetch(c *gin.Context, identity *lanes.Identity) {
	r := FileFetchRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		handlers.RespondError(c, f.Log, apperr.Validation(err.Error(), "Invalid file request"))
		return
	}
	if r.Size != 0 && (r.Size < MinThumbSize || r.Size > MaxThumbSize) {
		msg := "Size must be between " + strconv.Itoa(MinThumbSize) + " and " + strconv.Itoa(MaxThumbSize)
		handlers.RespondError(c, f.Log, apperr.Validation("invalid thumb size", msg))
		return
	}
	obj, err := f.Lanes.OpenImage(c.Request.Context(), c.Param("laneId"), c.Param("blob"), identity)
	if err != nil {
		handlers.RespondError(c, f.Log, err)
		return
	}
	defer obj.Body.Close()

	if r.Size > 0 {
		var buf bytes.Buffer
		if _, err = utils.CreateThumb(r.Size, obj.Body, &buf); err != nil {
			handlers.RespondError(c, f.Log, apperr.Validation("thumb of "+obj.Key+": "+err.Error(), "Image cannot be resized"))
			return
		}
		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
		return
	}
	if r.Download == 1 {
		name := obj.Metadata["originalName"]
		if name == "" {
			name = obj.Key[strings.LastIndex(obj.Key, "/")+1:]
		}
		c.Header("content-disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	}
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, nil)
}

func DisallowRobots(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}
