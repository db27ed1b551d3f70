package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
)

// PaymentOutcome is what a processed redirect produced.
type PaymentOutcome struct {
	Status    string
	Message   string
	Course    *models.Course
	Enrolled  []models.Course
	Duplicate bool
}

type PaymentService interface {
	Process(ctx context.Context, res models.PaymentResult) (*PaymentOutcome, error)
}

type paymentService struct {
	api      PaymentAPI
	courses  CourseService
	payments repository.PaymentRepository
	notify   Notifier
	log      logger.Logger
}

func NewPaymentService(paymentAPI PaymentAPI, courses CourseService, payments repository.PaymentRepository, notify Notifier, log logger.Logger) PaymentService {
	return &paymentService{
		api:      paymentAPI,
		courses:  courses,
		payments: payments,
		notify:   notify,
		log:      log,
	}
}

// Process handles one payment provider redirect. A transaction is handled
// at most once; a failed attempt is released so the redirect can be retried.
func (s *paymentService) Process(ctx context.Context, res models.PaymentResult) (*PaymentOutcome, error) {
	res.Status = strings.ToLower(strings.TrimSpace(res.Status))

	fresh, err := s.payments.MarkProcessed(ctx, res)
	if err != nil {
		return nil, err
	}
	if !fresh {
		s.log.Info("payment already processed", res.TransactionID)
		return &PaymentOutcome{Status: res.Status, Message: res.Message, Duplicate: true}, nil
	}

	out, err := s.process(ctx, res)
	if err != nil {
		if rerr := s.payments.Release(context.WithoutCancel(ctx), res.TransactionID); rerr != nil {
			s.log.Error("releasing failed payment", res.TransactionID, rerr)
		}
		return nil, err
	}
	return out, nil
}

func (s *paymentService) process(ctx context.Context, res models.PaymentResult) (*PaymentOutcome, error) {
	out := &PaymentOutcome{Status: res.Status, Message: res.Message}

	switch res.Status {
	case models.PaymentSuccess:
		if res.CourseID == "" {
			s.notify.Success("Payment completed")
			return out, nil
		}
		return s.success(ctx, res, out)

	case models.PaymentCancel, models.PaymentError:
		if res.TransactionID != "" {
			if err := s.api.CancelPayPal(ctx, res.TransactionID); err != nil {
				s.log.Warn("reporting cancelled payment", res.TransactionID, err)
			}
		}
		msg := res.Message
		if msg == "" {
			msg = "Payment was not completed"
		}
		if res.Status == models.PaymentCancel {
			s.notify.Info(msg)
		} else {
			s.notify.Error(msg)
		}
		return out, nil
	}

	s.log.Warn("unknown payment status", res.Status)
	return out, nil
}

// success confirms with the backend, then loads the enrolled list and the
// course in parallel. A failed confirmation is reported but the enrolment
// is still looked up.
func (s *paymentService) success(ctx context.Context, res models.PaymentResult, out *PaymentOutcome) (*PaymentOutcome, error) {
	if err := s.api.ConfirmPayPal(ctx, res); err != nil {
		s.log.Warn("confirming payment", res.TransactionID, err)
		s.notify.Error("Payment received but confirmation failed: " + err.Error())
	}

	var (
		enrolled []models.Course
		course   *models.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		enrolled, err = s.courses.Enrolled(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		course, err = s.api.CourseDetails(gctx, res.CourseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.courses.AddEnrolled(ctx, *course); err != nil {
		s.log.Warn("updating enrolled cache", err)
	}

	out.Course = course
	out.Enrolled = dedupeCourses(append(enrolled, *course))
	s.notify.Success("Enrolled in " + course.Title)
	return out, nil
}
