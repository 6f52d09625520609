package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event represents a schedulable gathering with capacity-limited attendance.
// Creator and Attendees are always returned in resolved form.
// swagger:model Event
type Event struct {
	ID           string        `json:"id"`
	Title        string        `json:"title" validate:"required,max=200"`
	Description  string        `json:"description" validate:"max=5000"`
	Date         time.Time     `json:"date" validate:"required"`
	Location     string        `json:"location" validate:"required,max=200"`
	Category     string        `json:"category" validate:"required,max=100"`
	MaxAttendees int           `json:"max_attendees" validate:"gt=0"`
	Creator      UserSummary   `json:"creator"`
	Attendees    []UserSummary `json:"attendees"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// EventFields are the client-supplied fields of a new event.
type EventFields struct {
	Title        string
	Description  string
	Date         time.Time
	Location     string
	Category     string
	MaxAttendees int
}

// NewEvent returns a new Event owned by creatorID. ID and timestamps are set by the repository on create.
func NewEvent(fields EventFields, creatorID string) *Event {
	return &Event{
		Title:        fields.Title,
		Description:  fields.Description,
		Date:         fields.Date,
		Location:     fields.Location,
		Category:     fields.Category,
		MaxAttendees: fields.MaxAttendees,
		Creator:      UserSummary{ID: creatorID},
		Attendees:    []UserSummary{},
	}
}

// HasAttendee reports whether userID already joined the event.
func (e *Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether no attendee slot is left.
func (e *Event) IsFull() bool {
	return len(e.Attendees) >= e.MaxAttendees
}

// IsCreatedBy reports whether userID is the event's creator.
func (e *Event) IsCreatedBy(userID string) bool {
	return e.Creator.ID != "" && e.Creator.ID == userID
}

// UpdatableFields is the whitelist of JSON keys an event update may carry.
var UpdatableFields = map[string]struct{}{
	"title":         {},
	"description":   {},
	"date":          {},
	"location":      {},
	"category":      {},
	"max_attendees": {},
}

// FieldAliases maps the camelCase spellings clients may send to their whitelisted key.
var FieldAliases = map[string]string{
	"maxAttendees": "max_attendees",
}

const dateOnlyLayout = "2006-01-02"

// ParseEventDate reads an RFC3339 timestamp or a plain YYYY-MM-DD date. A plain
// date is midnight UTC.
func ParseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnlyLayout, s)
}

// EventDate is a time decoded from a JSON string in either form ParseEventDate accepts.
type EventDate struct {
	time.Time
}

func (d *EventDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("date must be a string")
	}
	t, err := ParseEventDate(s)
	if err != nil {
		return errors.New("date must be an RFC3339 timestamp or YYYY-MM-DD date")
	}
	d.Time = t
	return nil
}

// EventPatch holds the whitelisted fields of an update. Nil fields are left unchanged.
type EventPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Category     *string    `json:"category,omitempty"`
	MaxAttendees *int       `json:"max_attendees,omitempty"`
}

type patchInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Date         *EventDate `json:"date"`
	Location     *string    `json:"location"`
	Category     *string    `json:"category"`
	MaxAttendees *int       `json:"max_attendees"`
}

// NewEventPatch keeps only the whitelisted keys of fields (aliases included)
// and decodes them into an EventPatch. Dropped keys are returned so callers can
// log them.
func NewEventPatch(fields map[string]json.RawMessage) (EventPatch, []string, error) {
	allowed := make(map[string]json.RawMessage, len(fields))
	var dropped []string
	for k, v := range fields {
		key := k
		if canonical, ok := FieldAliases[k]; ok {
			key = canonical
		}
		if _, ok := UpdatableFields[key]; !ok {
			dropped = append(dropped, k)
			continue
		}
		if _, dup := allowed[key]; dup {
			return EventPatch{}, dropped, NewValidationError(fmt.Sprintf("%s is given more than once", key))
		}
		allowed[key] = v
	}
	var in patchInput
	raw, err := json.Marshal(allowed)
	if err != nil {
		return EventPatch{}, dropped, fmt.Errorf("encode update fields: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return EventPatch{}, dropped, NewValidationError(err.Error())
	}
	patch := EventPatch{
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		Category:     in.Category,
		MaxAttendees: in.MaxAttendees,
	}
	if in.Date != nil {
		patch.Date = &in.Date.Time
	}
	return patch, dropped, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil &&
		p.Location == nil && p.Category == nil && p.MaxAttendees == nil
}

// ApplyTo copies the set fields of the patch onto e.
func (p EventPatch) ApplyTo(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.MaxAttendees != nil {
		e.MaxAttendees = *p.MaxAttendees
	}
}

// EventFilter is a conjunction of optional list predicates. Date bounds are inclusive.
type EventFilter struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// EventRepository defines the interface for event storage.
// AddAttendee and Update are conditional writes: when their guard does not
// match they return ErrPreconditionFailed without changing anything.
type EventRepository interface {
	Create(ctx context.Context, event *Event) (*Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Update(ctx context.Context, id string, patch EventPatch) (*Event, error)
	Delete(ctx context.Context, id string) error
	AddAttendee(ctx context.Context, id, userID string) (*Event, error)
}

// EventService defines the event lifecycle business rules.
type EventService interface {
	CreateEvent(ctx context.Context, fields EventFields, requesterID string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, id, requesterID string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, id, requesterID string) error
	JoinEvent(ctx context.Context, id, requesterID string) (*Event, error)
}
