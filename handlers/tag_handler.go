package handlers

import (
	"github.com/gin-gonic/gin"

	"edition-publisher/helper"
	"edition-publisher/models"
	"edition-publisher/services"
)

type TagHandler struct {
	tagService services.TagService
	Helper     *helper.HTTPHelper
}

func NewTagHandler(tagService services.TagService, h *helper.HTTPHelper) *TagHandler {
	return &TagHandler{tagService: tagService, Helper: h}
}

func (h *TagHandler) CreateTag(c *gin.Context) {
	var req models.CreateTagRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	tag, err := h.tagService.CreateTag(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Tag created successfully", tag)
}

func (h *TagHandler) GetTags(c *gin.Context) {
	tags, err := h.tagService.GetTags(c.Request.Context(), models.TagType(c.Query("type")))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", tags)
}

func (h *TagHandler) GetTag(c *gin.Context) {
	id, ok := idParam(c, h.Helper, "tag")
	if !ok {
		return
	}

	tag, err := h.tagService.GetTag(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", tag)
}
