package handlers

import (
	"github.com/gin-gonic/gin"

	"edition-publisher/helper"
	"edition-publisher/models"
	"edition-publisher/services"
	"edition-publisher/validators"
)

type ArtefactHandler struct {
	artefactService services.ArtefactService
	Helper          *helper.HTTPHelper
}

func NewArtefactHandler(artefactService services.ArtefactService, h *helper.HTTPHelper) *ArtefactHandler {
	return &ArtefactHandler{artefactService: artefactService, Helper: h}
}

// CreateArtefact registers a document and returns it with its first edition.
func (h *ArtefactHandler) CreateArtefact(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}
	var req models.CreateArtefactRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	artefact, edition, err := h.artefactService.CreateArtefact(c.Request.Context(), req, actor)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Artefact created", gin.H{
		"artefact": artefact,
		"edition":  edition,
	})
}

func (h *ArtefactHandler) GetArtefacts(c *gin.Context) {
	artefacts, err := h.artefactService.GetArtefacts(c.Request.Context(), c.Query("kind"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", artefacts)
}

func (h *ArtefactHandler) GetArtefact(c *gin.Context) {
	artefact, err := h.artefactService.GetArtefact(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", artefact)
}

func (h *ArtefactHandler) UpdateArtefact(c *gin.Context) {
	var req models.UpdateArtefactRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	artefact, err := h.artefactService.UpdateArtefact(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Artefact updated", artefact)
}

// CheckSlug runs the slug grammar for a kind without storing anything.
func (h *ArtefactHandler) CheckSlug(c *gin.Context) {
	var req models.SlugCheckRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	h.Helper.SendSuccess(c, "Success", validators.ValidateSlug(req.Kind, req.Slug))
}
