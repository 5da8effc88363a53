package handler

import (
	"net/http"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/repository"
)

type UserHandler struct {
	groups repository.GroupRepository
}

func NewUserHandler(groups repository.GroupRepository) *UserHandler {
	return &UserHandler{groups: groups}
}

// Me returns the authenticated user's profile as re-validated by the
// RequireLoggedIn middleware.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	response.JSON(w, http.StatusOK, user)
}

// Invites lists the pending group invites addressed to the current user.
func (h *UserHandler) Invites(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	invites, err := h.groups.ListInvitesByUser(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	response.JSON(w, http.StatusOK, invites)
}
