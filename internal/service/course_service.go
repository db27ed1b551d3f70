package service

import (
	"context"
	"time"

	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

type CourseService interface {
	All(ctx context.Context, force bool) ([]models.Course, error)
	Enrolled(ctx context.Context, force bool) ([]models.Course, error)
	Details(ctx context.Context, courseID string) (*models.Course, error)
	EnrollFree(ctx context.Context, courseID string) (*models.Course, error)
	AddEnrolled(ctx context.Context, course models.Course) error
}

type courseService struct {
	api     CourseAPI
	timed   *repository.TimedCache
	session *session.Session
	cfg     config.Cache
	log     logger.Logger
}

func NewCourseService(courseAPI CourseAPI, timed *repository.TimedCache, sess *session.Session, cfg config.Cache, log logger.Logger) CourseService {
	return &courseService{
		api:     courseAPI,
		timed:   timed,
		session: sess,
		cfg:     cfg,
		log:     log,
	}
}

func (s *courseService) All(ctx context.Context, force bool) ([]models.Course, error) {
	return s.cached(ctx, repository.AllCoursesKey, s.cfg.AllCoursesTTL, force, s.api.Courses)
}

// Enrolled lists each course once, even if the server repeats it.
func (s *courseService) Enrolled(ctx context.Context, force bool) ([]models.Course, error) {
	courses, err := s.cached(ctx, repository.EnrolledKey, s.cfg.EnrolledTTL, force, s.api.EnrolledCourses)
	if err != nil {
		return nil, err
	}
	return dedupeCourses(courses), nil
}

func (s *courseService) cached(
	ctx context.Context,
	name string,
	ttl time.Duration,
	force bool,
	fetch func(context.Context) ([]models.Course, error),
) ([]models.Course, error) {
	key := repository.UserKey(name, s.session.UserID())

	var courses []models.Course
	if !force {
		hit, err := s.timed.Get(ctx, key, ttl, &courses)
		if err != nil {
			s.log.Warn("reading course cache", key, err)
		}
		if hit {
			return courses, nil
		}
	}

	courses, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.timed.Put(ctx, key, courses); err != nil {
		s.log.Warn("writing course cache", key, err)
	}
	return courses, nil
}

func (s *courseService) Details(ctx context.Context, courseID string) (*models.Course, error) {
	return s.api.CourseDetails(ctx, courseID)
}

func (s *courseService) EnrollFree(ctx context.Context, courseID string) (*models.Course, error) {
	if err := s.api.EnrollFree(ctx, courseID); err != nil {
		return nil, err
	}
	course, err := s.api.CourseDetails(ctx, courseID)
	if err != nil {
		// Enrolled, but the cached list can't be updated; refetch next time.
		s.invalidateEnrolled(ctx)
		return &models.Course{ID: courseID}, nil
	}
	if err := s.AddEnrolled(ctx, *course); err != nil {
		s.log.Warn("updating enrolled cache", err)
	}
	return course, nil
}

// AddEnrolled appends course to the cached enrolled list unless present.
func (s *courseService) AddEnrolled(ctx context.Context, course models.Course) error {
	key := repository.UserKey(repository.EnrolledKey, s.session.UserID())

	var courses []models.Course
	hit, err := s.timed.Get(ctx, key, s.cfg.EnrolledTTL, &courses)
	if err != nil {
		return err
	}
	if !hit {
		// Nothing fresh to extend; the next read fetches the full list.
		return nil
	}
	return s.timed.Put(ctx, key, dedupeCourses(append(courses, course)))
}

func (s *courseService) invalidateEnrolled(ctx context.Context) {
	if err := s.timed.Invalidate(ctx, repository.UserKey(repository.EnrolledKey, s.session.UserID())); err != nil {
		s.log.Warn("invalidating enrolled cache", err)
	}
}

func dedupeCourses(courses []models.Course) []models.Course {
	seen := make(map[string]bool, len(courses))
	out := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if c.ID != "" && seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
