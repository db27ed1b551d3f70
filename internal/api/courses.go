package api

import (
	"context"
	"net/http"
	"net/url"

	"edusocial/internal/models"
)

func (c *Client) Courses(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/courses"}, &out, "courses"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EnrolledCourses(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/courses/enrolled"}, &out, "courses", "enrolledCourses"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CourseDetails(ctx context.Context, courseID string) (*models.Course, error) {
	var out models.Course
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/courses/" + pathID(courseID)}, &out, "course"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EnrollFree(ctx context.Context, courseID string) error {
	return c.post(ctx, "/courses/"+pathID(courseID)+"/enroll-free", nil, nil)
}

// ConfirmPayPal tells the backend a PayPal checkout came back successful.
func (c *Client) ConfirmPayPal(ctx context.Context, res models.PaymentResult) error {
	q := url.Values{}
	q.Set("transactionId", res.TransactionID)
	q.Set("courseId", res.CourseID)
	if res.PayerID != "" {
		q.Set("PayerID", res.PayerID)
	}
	return c.get(ctx, "/payments/paypal/success", q, nil)
}

func (c *Client) CancelPayPal(ctx context.Context, transactionID string) error {
	return c.get(ctx, "/payments/paypal/cancel", url.Values{"transactionId": {transactionID}}, nil)
}
