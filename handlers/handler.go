package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"edition-publisher/helper"
	"edition-publisher/middleware"
	"edition-publisher/models"
)

// actorOrAbort returns the authenticated actor, answering 401 when there is none.
func actorOrAbort(c *gin.Context, h *helper.HTTPHelper) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		h.SendUnauthorizedError(c, "User not found in context", h.EmptyJsonMap())
	}
	return actor, ok
}

// idParam parses the :id path parameter, answering 400 when it is not a number.
func idParam(c *gin.Context, h *helper.HTTPHelper, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.SendBadRequest(c, "Invalid "+name+" ID", h.EmptyJsonMap())
		return 0, false
	}
	return uint(id), true
}
