package service

import (
	"context"

	"edusocial/internal/api"
	"edusocial/internal/logger"
	"edusocial/internal/models"
)

type EventService interface {
	All(ctx context.Context, filter api.EventFilter) ([]models.Event, error)
	Upcoming(ctx context.Context) ([]models.Event, error)
	Detail(ctx context.Context, eventID string) (*models.Event, error)
	Register(ctx context.Context, eventID string) error
	Cancel(ctx context.Context, eventID string) error
	IsRegistered(ctx context.Context, eventID string) bool
}

type eventService struct {
	api    EventAPI
	notify Notifier
	log    logger.Logger
}

func NewEventService(eventAPI EventAPI, notify Notifier, log logger.Logger) EventService {
	return &eventService{api: eventAPI, notify: notify, log: log}
}

func (s *eventService) All(ctx context.Context, filter api.EventFilter) ([]models.Event, error) {
	return s.api.Events(ctx, filter)
}

func (s *eventService) Upcoming(ctx context.Context) ([]models.Event, error) {
	return s.api.UpcomingEvents(ctx)
}

func (s *eventService) Detail(ctx context.Context, eventID string) (*models.Event, error) {
	return s.api.Event(ctx, eventID)
}

func (s *eventService) Register(ctx context.Context, eventID string) error {
	if err := s.api.RegisterEvent(ctx, eventID); err != nil {
		s.notify.Error("Could not register for the event")
		return err
	}
	s.notify.Success("Registered for the event")
	return nil
}

func (s *eventService) Cancel(ctx context.Context, eventID string) error {
	if err := s.api.CancelEventRegistration(ctx, eventID); err != nil {
		s.notify.Error("Could not cancel the registration")
		return err
	}
	s.notify.Success("Registration cancelled")
	return nil
}

// IsRegistered treats any lookup failure as not registered.
func (s *eventService) IsRegistered(ctx context.Context, eventID string) bool {
	ok, err := s.api.EventRegistrationStatus(ctx, eventID)
	if err != nil {
		s.log.Debug("registration status", eventID, err)
		return false
	}
	return ok
}
