package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

func newPaymentService(m *MockAPI, repo *repository.Repository, sess *session.Session, n Notifier) PaymentService {
	courses := NewCourseService(m, repo.Timed, sess, testConfig().Cache, logger.Discard())
	return NewPaymentService(m, courses, repo.Payments, n, logger.Discard())
}

func TestPaymentService_SuccessEnrolls(t *testing.T) {
	ctx := context.Background()
	res := models.PaymentResult{Status: "SUCCESS", CourseID: "c2", TransactionID: "tx1", PayerID: "p1"}

	m := new(MockAPI)
	m.On("ConfirmPayPal", mock.Anything, mock.MatchedBy(func(r models.PaymentResult) bool {
		return r.TransactionID == "tx1" && r.Status == models.PaymentSuccess
	})).Return(nil)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course{{ID: "c1", Title: "Go"}}, nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(&models.Course{ID: "c2", Title: "SQL"}, nil)

	n := &recordingNotifier{}
	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), n)

	out, err := svc.Process(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, out.Status)
	assert.Equal(t, "c2", out.Course.ID)
	require.Len(t, out.Enrolled, 2)
	assert.Equal(t, []string{"success: Enrolled in SQL"}, n.all())
	m.AssertExpectations(t)
}

func TestPaymentService_ProcessedOnce(t *testing.T) {
	ctx := context.Background()
	res := models.PaymentResult{Status: "cancel", TransactionID: "tx9"}

	m := new(MockAPI)
	m.On("CancelPayPal", mock.Anything, "tx9").Return(nil).Once()

	n := &recordingNotifier{}
	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), n)

	out, err := svc.Process(ctx, res)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	out, err = svc.Process(ctx, res)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	m.AssertNumberOfCalls(t, "CancelPayPal", 1)
	assert.Equal(t, []string{"info: Payment was not completed"}, n.all())
}

func TestPaymentService_ConfirmFailureStillLooksUpEnrolment(t *testing.T) {
	m := new(MockAPI)
	m.On("ConfirmPayPal", mock.Anything, mock.Anything).Return(errors.New("gateway down"))
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course(nil), nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(&models.Course{ID: "c2", Title: "SQL"}, nil)

	n := &recordingNotifier{}
	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), n)

	out, err := svc.Process(context.Background(), models.PaymentResult{Status: "success", CourseID: "c2", TransactionID: "tx2"})
	require.NoError(t, err)
	assert.Equal(t, "c2", out.Course.ID)
	assert.Equal(t, []string{
		"error: Payment received but confirmation failed: gateway down",
		"success: Enrolled in SQL",
	}, n.all())
}

func TestPaymentService_ErrorStatus(t *testing.T) {
	m := new(MockAPI)
	n := &recordingNotifier{}
	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), n)

	out, err := svc.Process(context.Background(), models.PaymentResult{Status: "error", Message: "card declined"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentError, out.Status)
	assert.Equal(t, []string{"error: card declined"}, n.all())
	m.AssertNotCalled(t, "CancelPayPal", mock.Anything, mock.Anything)
}

func TestPaymentService_LookupFailure(t *testing.T) {
	m := new(MockAPI)
	m.On("ConfirmPayPal", mock.Anything, mock.Anything).Return(nil)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course(nil), nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(nil, errors.New("not found"))

	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})
	_, err := svc.Process(context.Background(), models.PaymentResult{Status: "success", CourseID: "c2"})
	assert.Error(t, err)
}

func TestPaymentService_FailedAttemptCanBeRetried(t *testing.T) {
	ctx := context.Background()
	res := models.PaymentResult{Status: "success", CourseID: "c2", TransactionID: "tx5"}

	m := new(MockAPI)
	m.On("ConfirmPayPal", mock.Anything, mock.Anything).Return(nil)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course(nil), nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(nil, errors.New("temporary outage")).Once()
	m.On("CourseDetails", mock.Anything, "c2").Return(&models.Course{ID: "c2", Title: "SQL"}, nil)

	svc := newPaymentService(m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})

	_, err := svc.Process(ctx, res)
	require.Error(t, err)

	out, err := svc.Process(ctx, res)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	require.NotNil(t, out.Course)
	assert.Equal(t, "c2", out.Course.ID)
	m.AssertNumberOfCalls(t, "ConfirmPayPal", 2)

	out, err = svc.Process(ctx, res)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
}
