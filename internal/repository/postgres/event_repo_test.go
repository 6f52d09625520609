package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"eventboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventID   = "7f1c2a9e-3b4d-4c5e-8f6a-1b2c3d4e5f60"
	missingID     = "00000000-0000-4000-8000-000000000000"
	testCreatorID = "user-1"
)

var (
	testDate = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	testNow  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

var eventRowColumns = []string{
	"id", "title", "description", "date", "location", "category", "max_attendees",
	"creator_id", "username", "attendees", "created_at", "updated_at",
}

func eventRow(attendees string) *sqlmock.Rows {
	return sqlmock.NewRows(eventRowColumns).AddRow(
		testEventID, "Go Meetup", "Talks and pizza", testDate, "Berlin", "tech", 10,
		testCreatorID, "alice", []byte(attendees), testNow, testNow,
	)
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	valid := func() *domain.Event {
		return domain.NewEvent(domain.EventFields{
			Title:        "Go Meetup",
			Description:  "Talks and pizza",
			Date:         testDate,
			Location:     "Berlin",
			Category:     "tech",
			MaxAttendees: 10,
		}, testCreatorID)
	}

	tests := []struct {
		name    string
		event   *domain.Event
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:  "success",
			event: valid(),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(title, description, date, location, category, max_attendees, creator_id, attendees\)`).
					WithArgs("Go Meetup", "Talks and pizza", testDate, "Berlin", "tech", 10, testCreatorID, sqlmock.AnyArg()).
					WillReturnRows(eventRow(`[]`))
			},
		},
		{
			name: "validation error does not hit the database",
			event: func() *domain.Event {
				e := valid()
				e.MaxAttendees = 0
				e.Title = ""
				return e
			}(),
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrValidation,
		},
		{
			name:  "check violation maps to validation error",
			event: valid(),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:  "db error",
			event: valid(),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.Create(ctx, tt.event)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testEventID, got.ID)
			assert.Equal(t, domain.UserSummary{ID: testCreatorID, Username: "alice"}, got.Creator)
			assert.Empty(t, got.Attendees)
			assert.NotNil(t, got.Attendees)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.Event
		wantErr error
	}{
		{
			name: "success with resolved attendees",
			id:   testEventID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events e\s+LEFT JOIN users c ON c.id = e.creator_id\s+WHERE e.id = \$1`).
					WithArgs(testEventID).
					WillReturnRows(eventRow(`[{"id":"user-2","username":"bob"},{"id":"user-3","username":""}]`))
			},
			want: &domain.Event{
				ID:           testEventID,
				Title:        "Go Meetup",
				Description:  "Talks and pizza",
				Date:         testDate,
				Location:     "Berlin",
				Category:     "tech",
				MaxAttendees: 10,
				Creator:      domain.UserSummary{ID: testCreatorID, Username: "alice"},
				Attendees: []domain.UserSummary{
					{ID: "user-2", Username: "bob"},
					{ID: "user-3", Username: ""},
				},
				CreatedAt: testNow,
				UpdatedAt: testNow,
			},
		},
		{
			name: "not found",
			id:   missingID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events e`).
					WithArgs(missingID).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "malformed id is absent without a query",
			id:      "not-a-uuid",
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "db error",
			id:   testEventID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events e`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_List(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  domain.EventFilter
		mock    func(mock sqlmock.Sqlmock)
		wantLen int
		wantErr bool
	}{
		{
			name:   "no filter orders by date",
			filter: domain.EventFilter{},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`LEFT JOIN users c ON c.id = e.creator_id\s+ORDER BY e.date ASC`).
					WithArgs().
					WillReturnRows(eventRow(`[]`))
			},
			wantLen: 1,
		},
		{
			name:   "category and date bounds",
			filter: domain.EventFilter{Category: "tech", StartDate: &start, EndDate: &end},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE e.category = \$1 AND e.date >= \$2 AND e.date <= \$3\s+ORDER BY e.date ASC`).
					WithArgs("tech", start, end).
					WillReturnRows(sqlmock.NewRows(eventRowColumns))
			},
			wantLen: 0,
		},
		{
			name:   "end bound only",
			filter: domain.EventFilter{EndDate: &end},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE e.date <= \$1`).
					WithArgs(end).
					WillReturnRows(eventRow(`[]`))
			},
			wantLen: 1,
		},
		{
			name:   "db error",
			filter: domain.EventFilter{},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events e`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.List(ctx, tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Len(t, got, tt.wantLen)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	title := "Renamed"
	max := 5

	tests := []struct {
		name    string
		id      string
		patch   domain.EventPatch
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:  "title only",
			id:    testEventID,
			patch: domain.EventPatch{Title: &title},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events SET updated_at = NOW\(\), title = \$1\s+WHERE id = \$2\s+RETURNING`).
					WithArgs("Renamed", testEventID).
					WillReturnRows(eventRow(`[]`))
			},
		},
		{
			name:  "max attendees is guarded by attendee count",
			id:    testEventID,
			patch: domain.EventPatch{Title: &title, MaxAttendees: &max},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SET updated_at = NOW\(\), title = \$1, max_attendees = \$2\s+WHERE id = \$3 AND cardinality\(attendees\) <= \$2`).
					WithArgs("Renamed", 5, testEventID).
					WillReturnRows(eventRow(`[]`))
			},
		},
		{
			name:  "guard not met",
			id:    testEventID,
			patch: domain.EventPatch{MaxAttendees: &max},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events`).
					WithArgs(5, testEventID).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrPreconditionFailed,
		},
		{
			name:  "capacity constraint violation",
			id:    testEventID,
			patch: domain.EventPatch{MaxAttendees: &max},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events`).
					WillReturnError(&pq.Error{Code: "23514", Constraint: capacityConstraint})
			},
			wantErr: domain.ErrInvalidCapacity,
		},
		{
			name:  "empty patch reads current row",
			id:    testEventID,
			patch: domain.EventPatch{},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE e.id = \$1`).
					WithArgs(testEventID).
					WillReturnRows(eventRow(`[]`))
			},
		},
		{
			name:    "malformed id",
			id:      "nope",
			patch:   domain.EventPatch{Title: &title},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.Update(ctx, tt.id, tt.patch)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.Equal(t, testEventID, got.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			id:   testEventID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
					WithArgs(testEventID).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found zero rows affected",
			id:   missingID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events`).
					WithArgs(missingID).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "db error",
			id:   testEventID,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			err = repo.Delete(ctx, tt.id)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_AddAttendee(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "appended",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SET attendees = array_append\(attendees, \$2::text\).*AND NOT \(\$2::text = ANY\(attendees\)\)\s+AND cardinality\(attendees\) < max_attendees`).
					WithArgs(testEventID, "user-2").
					WillReturnRows(eventRow(`[{"id":"user-2","username":"bob"}]`))
			},
		},
		{
			name: "full or already joined",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events`).
					WithArgs(testEventID, "user-2").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrPreconditionFailed,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.AddAttendee(ctx, testEventID, "user-2")
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, []domain.UserSummary{{ID: "user-2", Username: "bob"}}, got.Attendees)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
