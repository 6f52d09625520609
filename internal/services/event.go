package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventboard/internal/domain"
	"eventboard/internal/metrics"
)

// maxWriteAttempts bounds how often a conditional write is retried after losing
// to a concurrent writer whose change did not decide the outcome.
const maxWriteAttempts = 3

type eventService struct {
	eventRepo      domain.EventRepository
	notifier       domain.Notifier
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository, notifier domain.Notifier, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		notifier:       notifier,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, fields domain.EventFields, requesterID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// The creator is always the requester, whatever the input said.
	event := domain.NewEvent(fields, requesterID)
	if err := event.Validate(); err != nil {
		return nil, err
	}
	created, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.notifier.Notify(domain.NotificationCreated, created)
	return created, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, domain.NewValidationError("start date must not be after end date")
	}
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.getEvent(ctx, id)
}

func (s *eventService) UpdateEvent(ctx context.Context, id, requesterID string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		event, err := s.getEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := ensureOwner(event, requesterID); err != nil {
			return nil, err
		}
		if patch.IsEmpty() {
			// Nothing to write, so nothing to announce.
			return event, nil
		}
		merged := *event
		patch.ApplyTo(&merged)
		if err := merged.Validate(); err != nil {
			return nil, err
		}
		if merged.MaxAttendees < len(merged.Attendees) {
			return nil, domain.ErrInvalidCapacity
		}

		updated, err := s.eventRepo.Update(ctx, id, patch)
		switch {
		case err == nil:
			s.notifier.Notify(domain.NotificationUpdated, updated)
			return updated, nil
		case errors.Is(err, domain.ErrPreconditionFailed):
			// Deleted or joined past the new capacity since the read; the next
			// pass reports which.
			metrics.WriteConflicts.WithLabelValues("update").Inc()
			continue
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidCapacity), errors.Is(err, domain.ErrValidation):
			return nil, err
		default:
			return nil, fmt.Errorf("update event: %w", err)
		}
	}
	return nil, domain.ErrConflict
}

func (s *eventService) DeleteEvent(ctx context.Context, id, requesterID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := ensureOwner(event, requesterID); err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.notifier.Notify(domain.NotificationDeleted, event.ID)
	return nil
}

func (s *eventService) JoinEvent(ctx context.Context, id, requesterID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		event, err := s.getEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		if event.HasAttendee(requesterID) {
			return nil, domain.ErrAlreadyJoined
		}
		if event.IsFull() {
			return nil, domain.ErrEventFull
		}

		joined, err := s.eventRepo.AddAttendee(ctx, id, requesterID)
		switch {
		case err == nil:
			s.notifier.Notify(domain.NotificationUpdated, joined)
			return joined, nil
		case errors.Is(err, domain.ErrPreconditionFailed):
			// Another writer got there first; re-read to tell full, joined and gone apart.
			metrics.WriteConflicts.WithLabelValues("join").Inc()
			continue
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNotFound
		default:
			return nil, fmt.Errorf("join event: %w", err)
		}
	}
	return nil, domain.ErrConflict
}

func (s *eventService) getEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ensureOwner is the single authorization predicate for owner-only mutations.
func ensureOwner(event *domain.Event, requesterID string) error {
	if !event.IsCreatedBy(requesterID) {
		return domain.ErrForbidden
	}
	return nil
}
