package handlers

import (
	"memorylane/apperr"
	"memorylane/lanes"
	"memorylane/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PageRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type LaneCreateRequest struct {
	Name string `json:"name"`
}

type LaneStatusRequest struct {
	Status models.LaneStatus `json:"status"`
}

func bindPage(c *gin.Context) (PageRequest, error) {
	r := PageRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		return r, apperr.Validation("invalid paging: "+err.Error(), "Page and limit must be numbers")
	}
	return r, nil
}

func (h *Handlers) LaneListPublished(c *gin.Context, identity *lanes.Identity) {
	r, err := bindPage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Lanes.ListPublished(c.Request.Context(), r.Page, r.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) LaneCreate(c *gin.Context, identity *lanes.Identity) {
	r := LaneCreateRequest{}
	if err := bindJSON(c, &r); err != nil {
		h.fail(c, err)
		return
	}
	lane, err := h.Lanes.CreateLane(c.Request.Context(), r.Name, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lane)
}

func (h *Handlers) LaneGet(c *gin.Context, identity *lanes.Identity) {
	lane, err := h.Lanes.GetLane(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lane)
}

func (h *Handlers) LaneUpdate(c *gin.Context, identity *lanes.Identity) {
	patch := lanes.LanePatch{}
	if err := bindJSON(c, &patch); err != nil {
		h.fail(c, err)
		return
	}
	lane, err := h.Lanes.UpdateLane(c.Request.Context(), c.Param("id"), patch, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lane)
}

func (h *Handlers) LaneDelete(c *gin.Context, identity *lanes.Identity) {
	if err := h.Lanes.DeleteLane(c.Request.Context(), c.Param("id"), identity); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func (h *Handlers) LaneChangeStatus(c *gin.Context, identity *lanes.Identity) {
	r := LaneStatusRequest{}
	if err := bindJSON(c, &r); err != nil {
		h.fail(c, err)
		return
	}
	h.changeStatus(c, identity, r.Status)
}

// LaneSetStatus is a fixed target ChangeStatus handler
func (h *Handlers) LaneSetStatus(status models.LaneStatus) func(c *gin.Context, identity *lanes.Identity) {
	return func(c *gin.Context, identity *lanes.Identity) {
		h.changeStatus(c, identity, status)
	}
}

func (h *Handlers) changeStatus(c *gin.Context, identity *lanes.Identity, status models.LaneStatus) {
	lane, err := h.Lanes.ChangeStatus(c.Request.Context(), c.Param("id"), status, identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lane)
}

func (h *Handlers) UserLanes(c *gin.Context, identity *lanes.Identity) {
	r, err := bindPage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Lanes.ListUserLanes(c.Request.Context(), c.Param("id"), identity, r.Page, r.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) OwnLanes(c *gin.Context, identity *lanes.Identity) {
	r, err := bindPage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Lanes.ListUserLanes(c.Request.Context(), identity.ID, identity, r.Page, r.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
