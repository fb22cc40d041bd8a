package handler

import (
	"encoding/json"
	"net/http"

	"code_farm/internal/api/middleware"
	"code_farm/internal/app/service"
	"code_farm/internal/common"

	"github.com/go-chi/chi/v5"
)

type PlaygroundHandler struct {
	playgroundService *service.PlaygroundService
}

func NewPlaygroundHandler(ps *service.PlaygroundService) *PlaygroundHandler {
	return &PlaygroundHandler{playgroundService: ps}
}

func (h *PlaygroundHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/run", h.runCode)
}

func (h *PlaygroundHandler) runCode(w http.ResponseWriter, r *http.Request) {
	var req service.RunCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := h.playgroundService.RunCode(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
