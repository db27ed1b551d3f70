package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edusocial/internal/logger"
)

func TestEventService_RegisterNotifies(t *testing.T) {
	m := new(MockAPI)
	m.On("RegisterEvent", mock.Anything, "e1").Return(nil)
	m.On("CancelEventRegistration", mock.Anything, "e1").Return(errors.New("closed"))

	n := &recordingNotifier{}
	svc := NewEventService(m, n, logger.Discard())

	assert.NoError(t, svc.Register(context.Background(), "e1"))
	assert.Error(t, svc.Cancel(context.Background(), "e1"))
	assert.Equal(t, []string{"success: Registered for the event", "error: Could not cancel the registration"}, n.all())
}

func TestEventService_IsRegistered(t *testing.T) {
	m := new(MockAPI)
	m.On("EventRegistrationStatus", mock.Anything, "e1").Return(true, nil)
	m.On("EventRegistrationStatus", mock.Anything, "e2").Return(false, errors.New("boom"))

	svc := NewEventService(m, &recordingNotifier{}, logger.Discard())
	assert.True(t, svc.IsRegistered(context.Background(), "e1"))
	assert.False(t, svc.IsRegistered(context.Background(), "e2"))
}
