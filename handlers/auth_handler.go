package handlers

import (
	"github.com/gin-gonic/gin"

	"edition-publisher/helper"
	"edition-publisher/models"
	"edition-publisher/services"
)

type AuthHandler struct {
	authService services.AuthService
	Helper      *helper.HTTPHelper
}

func NewAuthHandler(authService services.AuthService, h *helper.HTTPHelper) *AuthHandler {
	return &AuthHandler{authService: authService, Helper: h}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	response, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Register success", response)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Login success", response)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.Helper)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		h.Helper.SendServiceError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Profile loaded", user)
}
