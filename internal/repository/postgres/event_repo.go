package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventboard/internal/domain"
)

// eventColumns selects an event row aliased as e together with its resolved
// creator (joined as c) and attendees, in attendee order.
const eventColumns = `
		e.id, e.title, e.description, e.date, e.location, e.category, e.max_attendees,
		e.creator_id, COALESCE(c.username, ''),
		COALESCE((
			SELECT json_agg(json_build_object('id', a.user_id, 'username', COALESCE(u.username, '')) ORDER BY a.pos)
			FROM unnest(e.attendees) WITH ORDINALITY AS a(user_id, pos)
			LEFT JOIN users u ON u.id = a.user_id
		), '[]'::json),
		e.created_at, e.updated_at`

const creatorJoin = `LEFT JOIN users c ON c.id = e.creator_id`

const capacityConstraint = "events_attendees_within_capacity"

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	attendeeIDs := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendeeIDs = append(attendeeIDs, a.ID)
	}
	query := `
		WITH e AS (
			INSERT INTO events (title, description, date, location, category, max_attendees, creator_id, attendees)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT` + eventColumns + `
		FROM e ` + creatorJoin
	created, err := scanEvent(r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Date, e.Location, e.Category, e.MaxAttendees, e.Creator.ID, pq.Array(attendeeIDs),
	))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if !isEventID(id) {
		return nil, domain.ErrNotFound
	}
	query := `
		SELECT` + eventColumns + `
		FROM events e ` + creatorJoin + `
		WHERE e.id = $1
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	var conditions []string
	args := []interface{}{}
	n := 1
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("e.category = $%d", n))
		args = append(args, filter.Category)
		n++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("e.date >= $%d", n))
		args = append(args, *filter.StartDate)
		n++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("e.date <= $%d", n))
		args = append(args, *filter.EndDate)
		n++
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	query := `
		SELECT` + eventColumns + `
		FROM events e ` + creatorJoin + `
		` + where + `
		ORDER BY e.date ASC, e.id ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update writes only the fields set in patch. When patch lowers max_attendees
// the write is guarded by the current attendee count in the same statement.
func (r *eventRepository) Update(ctx context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	if !isEventID(id) {
		return nil, domain.ErrNotFound
	}
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	if patch.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", n))
		args = append(args, *patch.Title)
		n++
	}
	if patch.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", n))
		args = append(args, *patch.Description)
		n++
	}
	if patch.Date != nil {
		setClauses = append(setClauses, fmt.Sprintf("date = $%d", n))
		args = append(args, *patch.Date)
		n++
	}
	if patch.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", n))
		args = append(args, *patch.Location)
		n++
	}
	if patch.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", n))
		args = append(args, *patch.Category)
		n++
	}
	guard := ""
	if patch.MaxAttendees != nil {
		setClauses = append(setClauses, fmt.Sprintf("max_attendees = $%d", n))
		guard = fmt.Sprintf(" AND cardinality(attendees) <= $%d", n)
		args = append(args, *patch.MaxAttendees)
		n++
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		WITH e AS (
			UPDATE events SET %s
			WHERE id = $%d%s
			RETURNING *
		)
		SELECT`+eventColumns+`
		FROM e `+creatorJoin, strings.Join(setClauses, ", "), n, guard)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPreconditionFailed
		}
		return nil, mapWriteError(err)
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	if !isEventID(id) {
		return domain.ErrNotFound
	}
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddAttendee appends userID in a single conditional statement: the row is only
// changed when userID is not yet a member and a slot is still free.
func (r *eventRepository) AddAttendee(ctx context.Context, id, userID string) (*domain.Event, error) {
	if !isEventID(id) {
		return nil, domain.ErrNotFound
	}
	query := `
		WITH e AS (
			UPDATE events
			SET attendees = array_append(attendees, $2::text), updated_at = NOW()
			WHERE id = $1
				AND NOT ($2::text = ANY(attendees))
				AND cardinality(attendees) < max_attendees
			RETURNING *
		)
		SELECT` + eventColumns + `
		FROM e ` + creatorJoin
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPreconditionFailed
		}
		return nil, mapWriteError(err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var attendees []byte
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Category, &e.MaxAttendees,
		&e.Creator.ID, &e.Creator.Username, &attendees, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Attendees = []domain.UserSummary{}
	if len(attendees) > 0 {
		if err := json.Unmarshal(attendees, &e.Attendees); err != nil {
			return nil, fmt.Errorf("decode attendees: %w", err)
		}
	}
	return e, nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23514": // check_violation
		if pqErr.Constraint == capacityConstraint {
			return domain.ErrInvalidCapacity
		}
		return domain.NewValidationError(pqErr.Message)
	case "23502", "22007", "22008": // not_null_violation, invalid_datetime_format, datetime_field_overflow
		return domain.NewValidationError(pqErr.Message)
	}
	return err
}

func isEventID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
