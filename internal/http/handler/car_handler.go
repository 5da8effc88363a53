package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/repository"
)

type CarHandler struct {
	cars     repository.CarRepository
	groups   repository.GroupRepository
	validate *validator.Validate
}

func NewCarHandler(cars repository.CarRepository, groups repository.GroupRepository) *CarHandler {
	return &CarHandler{
		cars:     cars,
		groups:   groups,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type createCarRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type parkRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Create registers a car in the group. Admin-only.
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, groupID, err := h.member(r)
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
		response.Error(w, r, apperrors.Forbidden("only group admins can register cars"))
		return
	}
	var req createCarRequest
	if err := decodeValid(h.validate, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	car := &domain.Car{GroupID: groupID, Name: req.Name}
	if err := h.cars.Create(r.Context(), car); err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	observability.Audit(r, "car_registered", "group_id", groupID, "car_id", car.ID)
	response.JSON(w, http.StatusCreated, car)
}

func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	_, groupID, err := h.member(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	cars, err := h.cars.ListByGroup(r.Context(), groupID)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	response.JSON(w, http.StatusOK, cars)
}

// Drive claims the car for the current user. Fails with a conflict if
// another member is already driving.
func (h *CarHandler) Drive(w http.ResponseWriter, r *http.Request) {
	user, groupID, err := h.member(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	carID, err := carIDParam(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	car, err := h.cars.RegisterDriver(r.Context(), groupID, carID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCarNotFound):
			response.Error(w, r, apperrors.NotFound("car not found"))
		case errors.Is(err, repository.ErrCarInUse):
			response.Error(w, r, apperrors.Conflict("car already has a driver"))
		default:
			response.Error(w, r, apperrors.Internal(err))
		}
		return
	}
	observability.Audit(r, "car_drive", "group_id", groupID, "car_id", carID, "driver_id", user.ID)
	response.JSON(w, http.StatusOK, car)
}

// Park releases the car at a position. Only the current driver may park.
func (h *CarHandler) Park(w http.ResponseWriter, r *http.Request) {
	user, groupID, err := h.member(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	carID, err := carIDParam(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req parkRequest
	if err := decodeValid(h.validate, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	car, err := h.cars.Park(r.Context(), groupID, carID, user.ID, req.Latitude, req.Longitude)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCarNotFound):
			response.Error(w, r, apperrors.NotFound("car not found"))
		case errors.Is(err, repository.ErrCarNotDrivenBy):
			response.Error(w, r, apperrors.Forbidden("car is not driven by you"))
		default:
			response.Error(w, r, apperrors.Internal(err))
		}
		return
	}
	observability.Audit(r, "car_park", "group_id", groupID, "car_id", carID, "driver_id", user.ID)
	response.JSON(w, http.StatusOK, car)
}

func (h *CarHandler) member(r *http.Request) (*domain.User, uint, error) {
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

func carIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "carID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.BadRequest("car id must be a positive integer")
	}
	return uint(id), nil
}
