package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"edition-publisher/helper"
	"edition-publisher/models"
	"edition-publisher/services"
	"edition-publisher/workflow"
)

type EditionHandler struct {
	editionService     services.EditionService
	cloneService       services.CloneService
	publicationService services.PublicationService
	Helper             *helper.HTTPHelper
}

func NewEditionHandler(s *services.Services, h *helper.HTTPHelper) *EditionHandler {
	return &EditionHandler{
		editionService:     s.Editions,
		cloneService:       s.Clones,
		publicationService: s.Publication,
		Helper:             h,
	}
}

func (h *EditionHandler) GetEditions(c *gin.Context) {
	var params models.EditionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBadRequest(c, err.Error(), h.Helper.EmptyJsonMap())
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	editions, total, err := h.editionService.GetEditions(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", gin.H{
		"editions":   editions,
		"pagination": h.Helper.GeneratePaging(c, params.Limit, params.Page, int(total)),
	})
}

func (h *EditionHandler) GetEdition(c *gin.Context) {
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}

	edition, err := h.editionService.GetEdition(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", edition)
}

func (h *EditionHandler) UpdateEdition(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}
	var req models.UpdateEditionRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	edition, err := h.editionService.UpdateEdition(c.Request.Context(), id, req, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Edition updated", edition)
}

func (h *EditionHandler) DeleteEdition(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}

	destroyed, err := h.editionService.DeleteEdition(c.Request.Context(), id, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Edition deleted", gin.H{"artefact_destroyed": destroyed})
}

// Transition fires a workflow action named in the body.
func (h *EditionHandler) Transition(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}
	var req models.TransitionRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	edition, err := h.editionService.Transition(c.Request.Context(), id, req, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Transition applied", edition)
}

func (h *EditionHandler) AvailableActions(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}

	actions, err := h.editionService.AvailableActions(c.Request.Context(), id, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}
	if actions == nil {
		actions = []workflow.Action{}
	}

	h.Helper.SendSuccess(c, "Success", actions)
}

// Clone creates the next version, optionally in another format.
func (h *EditionHandler) Clone(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}
	var req models.CloneRequest
	if c.Request.ContentLength != 0 && !h.Helper.BindJSON(c, &req) {
		return
	}

	edition, err := h.cloneService.CreateClone(c.Request.Context(), id, req.Format, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Edition cloned", edition)
}

func (h *EditionHandler) Publish(c *gin.Context) {
	h.publish(c, h.publicationService.Publish)
}

func (h *EditionHandler) EmergencyPublish(c *gin.Context) {
	h.publish(c, h.publicationService.EmergencyPublish)
}

func (h *EditionHandler) publish(c *gin.Context, fn func(ctx context.Context, id uint, actor models.Actor) (*models.Edition, error)) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}

	edition, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Edition published", edition)
}

func (h *EditionHandler) IndexableContent(c *gin.Context) {
	id, ok := idParam(c, h.Helper, "edition")
	if !ok {
		return
	}

	text, err := h.editionService.IndexableContent(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", gin.H{"content": text})
}

func (h *EditionHandler) GetSeries(c *gin.Context) {
	editions, err := h.editionService.GetSeries(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", editions)
}

func (h *EditionHandler) Metadata(c *gin.Context) {
	meta, err := h.publicationService.Metadata(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", meta)
}

// FindBySlug resolves ?slug= and ?edition= ("latest", a version number, or empty for
// the published version).
func (h *EditionHandler) FindBySlug(c *gin.Context) {
	slug := c.Query("slug")
	if slug == "" {
		h.Helper.SendBadRequest(c, "slug is required", h.Helper.EmptyJsonMap())
		return
	}

	edition, err := h.editionService.FindAndIdentify(c.Request.Context(), slug, c.Query("edition"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", edition)
}
