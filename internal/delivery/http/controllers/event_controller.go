package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/delivery/http/middleware"
	"eventboard/internal/domain"
)

// CreateEventRequest is the request body for POST /events. A creator field is
// accepted for compatibility and ignored; the requester always becomes the creator.
// The date may be RFC3339 or YYYY-MM-DD, and maxAttendees is read as max_attendees.
type CreateEventRequest struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Date              *domain.EventDate `json:"date" swaggertype:"string"`
	Location          string            `json:"location"`
	Category          string            `json:"category"`
	MaxAttendees      *int              `json:"max_attendees"`
	MaxAttendeesCamel *int              `json:"maxAttendees,omitempty" swaggerignore:"true"`
	Creator           json.RawMessage   `json:"creator,omitempty" swaggerignore:"true"`
}

func (c CreateEventRequest) maxAttendees() *int {
	if c.MaxAttendees != nil {
		return c.MaxAttendees
	}
	return c.MaxAttendeesCamel
}

// Validate implements Validator. Returns error messages for required and range rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Title == "" {
		errs = append(errs, "title is required")
	}
	if c.Date == nil || c.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if c.Location == "" {
		errs = append(errs, "location is required")
	}
	if c.Category == "" {
		errs = append(errs, "category is required")
	}
	switch capacity := c.maxAttendees(); {
	case c.MaxAttendees != nil && c.MaxAttendeesCamel != nil:
		errs = append(errs, "max_attendees is given more than once")
	case capacity == nil:
		errs = append(errs, "max_attendees is required")
	case *capacity <= 0:
		errs = append(errs, "max_attendees must be greater than 0")
	}
	return errs
}

func (c CreateEventRequest) fields() domain.EventFields {
	f := domain.EventFields{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Category:    c.Category,
	}
	if c.Date != nil {
		f.Date = c.Date.Time
	}
	if capacity := c.maxAttendees(); capacity != nil {
		f.MaxAttendees = *capacity
	}
	return f
}

// UpdateEventRequest documents the accepted keys of PUT /events/{eventID}. The
// handler reads any JSON object and keeps only these keys.
type UpdateEventRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Date         *string `json:"date" example:"2025-06-01T18:00:00Z"`
	Location     *string `json:"location"`
	Category     *string `json:"category"`
	MaxAttendees *int    `json:"max_attendees"`
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsSuccessResponse is the success envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DeleteEventResponse is the response body for DELETE /events/{eventID}.
type DeleteEventResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// DeleteEventSuccessResponse is the success envelope for DELETE /events/{eventID} (200).
type DeleteEventSuccessResponse struct {
	Data  DeleteEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Lists events ordered by date. Optional filters: exact category and an inclusive date range. Dates may be RFC3339 timestamps or YYYY-MM-DD.
// @Tags events
// @Produce json
// @Param category query string false "Exact category"
// @Param start_date query string false "Earliest date (inclusive); startDate is also accepted"
// @Param end_date query string false "Latest date (inclusive); endDate is also accepted"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains the events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, errs := helpers.ParseEventFilter(r)
	if len(errs) > 0 {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, strings.Join(errs, "; "))
		return
	}
	events, err := c.Service.ListEvents(r.Context(), filter)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with creator and attendees resolved to id and username.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event owned by the authenticated user. Attendees start empty and the id and timestamps are server-generated. The date may be an RFC3339 timestamp or YYYY-MM-DD; maxAttendees is accepted for max_attendees.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), req.fields(), userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Updates title, description, date, location, category and max_attendees (maxAttendees is also accepted). Dates may be RFC3339 timestamps or YYYY-MM-DD. Other keys are ignored. An empty update changes nothing and broadcasts nothing. Only the creator can update; max_attendees cannot drop below the current attendee count.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_capacity"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not creator)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var body map[string]json.RawMessage
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	patch, dropped, err := domain.NewEventPatch(body)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	if len(dropped) > 0 {
		c.Logger.DebugContext(r.Context(), "ignored non-updatable fields", "event_id", eventID, "fields", dropped)
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, userID, patch)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event. Only the creator can delete.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.DeleteEventSuccessResponse "data contains a confirmation and the id"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not creator)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, userID); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Message: "event removed", ID: eventID})
}

// JoinEvent godoc
// @Summary Join an event
// @Description Adds the authenticated user to the event's attendees while capacity remains.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: already_joined or event_full"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/join [post]
func (c *EventController) JoinEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.JoinEvent(r.Context(), eventID, userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// writeServiceError maps domain errors to responses. Anything unrecognised is
// logged and reported as a generic 500.
func (c *EventController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidCapacity):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeInvalidCapacity, domain.ErrInvalidCapacity.Error())
	case errors.Is(err, domain.ErrEventFull):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeEventFull, domain.ErrEventFull.Error())
	case errors.Is(err, domain.ErrAlreadyJoined):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeAlreadyJoined, domain.ErrAlreadyJoined.Error())
	case errors.Is(err, domain.ErrConflict):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "event was modified concurrently, retry")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
	}
}
