package handler

import (
	"net/http"

	"code_farm/internal/api/middleware"
	"code_farm/internal/app/service"
	"code_farm/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService        *service.UserService
	leaderboardService *service.LeaderboardService
}

func NewUserHandler(us *service.UserService, ls *service.LeaderboardService) *UserHandler {
	return &UserHandler{userService: us, leaderboardService: ls}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard", h.getLeaderboard)
	r.Get("/profile/{username}", h.getProfile)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/my-rank", h.getMyRank)
	})
}

func (h *UserHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, offset := common.ParseLimitOffset(r, 50, 100)

	page, err := h.leaderboardService.GetLeaderboard(r.Context(), limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.userService.GetProfile(r.Context(), username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) getMyRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	rank, err := h.leaderboardService.GetUserRank(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"rank": rank})
}
