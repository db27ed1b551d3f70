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
)

func TestCourseService_EnrolledDedupedAndCached(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course{{ID: "c1"}, {ID: "c2"}, {ID: "c1"}}, nil)

	svc := NewCourseService(m, newTestRepo(t).Timed, loggedIn(t, "u1"), testConfig().Cache, logger.Discard())

	courses, err := svc.Enrolled(ctx, false)
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	_, err = svc.Enrolled(ctx, false)
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "EnrolledCourses", 1)

	_, err = svc.Enrolled(ctx, true)
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "EnrolledCourses", 2)
}

func TestCourseService_EnrollFreeExtendsCache(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course{{ID: "c1"}}, nil)
	m.On("EnrollFree", mock.Anything, "c2").Return(nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(&models.Course{ID: "c2", Title: "SQL"}, nil)

	svc := NewCourseService(m, newTestRepo(t).Timed, loggedIn(t, "u1"), testConfig().Cache, logger.Discard())
	_, err := svc.Enrolled(ctx, false)
	require.NoError(t, err)

	course, err := svc.EnrollFree(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "SQL", course.Title)

	courses, err := svc.Enrolled(ctx, false)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	m.AssertNumberOfCalls(t, "EnrolledCourses", 1)
}

func TestCourseService_EnrollFreeDetailsFailureInvalidates(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("EnrolledCourses", mock.Anything).Return([]models.Course{{ID: "c1"}}, nil)
	m.On("EnrollFree", mock.Anything, "c2").Return(nil)
	m.On("CourseDetails", mock.Anything, "c2").Return(nil, errors.New("boom"))

	svc := NewCourseService(m, newTestRepo(t).Timed, loggedIn(t, "u1"), testConfig().Cache, logger.Discard())
	_, err := svc.Enrolled(ctx, false)
	require.NoError(t, err)

	course, err := svc.EnrollFree(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", course.ID)

	_, err = svc.Enrolled(ctx, false)
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "EnrolledCourses", 2)
}

func TestCourseService_CachePerUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m := new(MockAPI)
	m.On("Courses", mock.Anything).Return([]models.Course{{ID: "c1"}}, nil)

	for _, user := range []string{"u1", "u2", "u1"} {
		svc := NewCourseService(m, repo.Timed, loggedIn(t, user), testConfig().Cache, logger.Discard())
		_, err := svc.All(ctx, false)
		require.NoError(t, err)
	}
	m.AssertNumberOfCalls(t, "Courses", 2)
}
