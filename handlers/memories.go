package handlers

import (
	"errors"
	"io"
	"memorylane/apperr"
	"memorylane/lanes"
	"memorylane/validation"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	imageFormField = "image"
	// Base64 grows the image by a third, the rest is room for the memory fields
	maxMemoryBody = validation.MaxFileSize*4/3 + 64*1024
)

func (h *Handlers) MemoryCreate(c *gin.Context, identity *lanes.Identity) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMemoryBody)
	r := lanes.NewMemory{}
	if err := bindJSON(c, &r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := validation.ImageSize(validation.MaxFileSize + 1).Error()
			err = apperr.Validation("memory body over "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", msg).Wrap(err)
		}
		h.fail(c, err)
		return
	}
	memory, err := h.Lanes.CreateMemory(c.Request.Context(), c.Param("id"), r, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, memory)
}

// MemoryUpload takes the image as a multipart file next to the memory fields
func (h *Handlers) MemoryUpload(c *gin.Context, identity *lanes.Identity) {
	fileHeader, err := c.FormFile(imageFormField)
	if err != nil {
		h.fail(c, apperr.Validation("missing image: "+err.Error(), "Image is required"))
		return
	}
	file := validation.FileInfo{
		Name: fileHeader.Filename,
		Type: fileHeader.Header.Get("Content-Type"),
		Size: fileHeader.Size,
	}
	if err = validation.ImageFile(&file); err != nil {
		h.fail(c, apperr.Validation(err.Error(), err.Error()))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, apperr.FileUpload("open multipart file: "+err.Error(), "").Wrap(err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, validation.MaxFileSize+1))
	if err != nil {
		h.fail(c, apperr.FileUpload("read multipart file: "+err.Error(), "").Wrap(err))
		return
	}
	fields := lanes.MemoryFields{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Date:    c.PostForm("date"),
	}
	memory, err := h.Lanes.CreateMemoryFromFile(c.Request.Context(), c.Param("id"), fields, file, data, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, memory)
}

func (h *Handlers) MemoryUpdate(c *gin.Context, identity *lanes.Identity) {
	patch := lanes.MemoryPatch{}
	if err := bindJSON(c, &patch); err != nil {
		h.fail(c, err)
		return
	}
	memory, err := h.Lanes.UpdateMemory(c.Request.Context(), c.Param("memoryId"), patch, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, memory)
}

func (h *Handlers) MemoryDelete(c *gin.Context, identity *lanes.Identity) {
	if err := h.Lanes.DeleteMemory(c.Request.Context(), c.Param("memoryId"), identity); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
