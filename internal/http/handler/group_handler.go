package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/notification"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/repository"
)

type GroupHandler struct {
	groups   repository.GroupRepository
	users    repository.UserRepository
	hub      *notification.Hub
	validate *validator.Validate
}

func NewGroupHandler(groups repository.GroupRepository, users repository.UserRepository, hub *notification.Hub) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		users:    users,
		hub:      hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=255"`
}

type inviteRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	var req createGroupRequest
	if err := decodeValid(h.validate, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	group := &domain.Group{Name: req.Name, Description: req.Description, OwnerID: user.ID}
	if err := h.groups.Create(r.Context(), group); err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	observability.Audit(r, "group_created", "group_id", group.ID, "owner_id", user.ID)
	response.JSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	groups, err := h.groups.ListByUser(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	response.JSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, groupID, err := h.memberOrReject(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	group, err := h.groups.FindByID(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			response.Error(w, r, apperrors.NotFound("group not found"))
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	response.JSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	_, groupID, err := h.memberOrReject(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	members, err := h.groups.ListMembers(r.Context(), groupID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	response.JSON(w, http.StatusOK, members)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, groupID, err := h.memberOrReject(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	group, err := h.groups.FindByID(r.Context(), groupID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	if group.OwnerID == user.ID {
		response.Error(w, r, apperrors.Forbidden("the owner cannot leave their own group"))
		return
	}
	if err := h.groups.DeleteMembership(r.Context(), user.ID, groupID); err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	observability.Audit(r, "group_left", "group_id", groupID, "user_id", user.ID)
	response.NoContent(w)
}

// Invite invites another user into the group. Only admins may invite;
// the invitee is notified over the websocket hub if connected.
func (h *GroupHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, groupID, err := h.memberOrReject(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	membership, err := h.groups.FindMembership(r.Context(), user.ID, groupID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	if !membership.IsAdmin {
		response.Error(w, r, apperrors.Forbidden("only group admins can invite users"))
		return
	}
	var req inviteRequest
	if err := decodeValid(h.validate, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	invitee, err := h.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, apperrors.NotFound("no such user"))
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	invite := &domain.Invite{UserID: invitee.ID, GroupID: groupID, InvitedBy: user.ID}
	if err := h.groups.CreateInvite(r.Context(), invite); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyMember):
			response.Error(w, r, apperrors.Conflict("user is already a member"))
		case errors.Is(err, repository.ErrAlreadyInvited):
			response.Error(w, r, apperrors.Conflict("user is already invited"))
		default:
			response.Error(w, r, apperrors.Internal(err))
		}
		return
	}
	h.hub.Notify(r.Context(), invitee.ID, notification.Event{
		Type:    "group_invite",
		GroupID: groupID,
		Payload: map[string]any{"invited_by": user.Username},
	})
	observability.Audit(r, "invite_created", "group_id", groupID, "invitee_id", invitee.ID)
	response.JSON(w, http.StatusCreated, invite)
}

// Join accepts a pending invite for the current user.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	groupID, err := groupIDParam(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	membership, err := h.groups.AcceptInvite(r.Context(), user.ID, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrInviteNotFound) {
			response.Error(w, r, apperrors.NotFound("no invite for this group"))
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	observability.Audit(r, "invite_accepted", "group_id", groupID, "user_id", user.ID)
	response.JSON(w, http.StatusCreated, membership)
}

// memberOrReject resolves the current user and the group id, requiring
// an existing membership for every group-scoped route.
func (h *GroupHandler) memberOrReject(r *http.Request) (*domain.User, uint, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, 0, apperrors.NotLoggedIn()
	}
	groupID, err := groupIDParam(r)
	if err != nil {
		return nil, 0, err
	}
	if err := requireMembership(r.Context(), h.groups, user.ID, groupID); err != nil {
		return nil, 0, err
	}
	return user, groupID, nil
}

func requireMembership(ctx context.Context, groups repository.GroupRepository, userID, groupID uint) error {
	_, err := groups.FindMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return apperrors.Forbidden("not a member of this group")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func groupIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "groupID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.BadRequest("group id must be a positive integer")
	}
	return uint(id), nil
}

func decodeValid(validate *validator.Validate, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("request body is not valid json")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.BadRequest("request body failed validation")
	}
	return nil
}
