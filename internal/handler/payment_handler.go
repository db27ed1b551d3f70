package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	"edusocial/internal/models"
	"edusocial/internal/validation"
)

type paymentQuery struct {
	Status        string `json:"status" validate:"required,oneof=success cancel error SUCCESS CANCEL ERROR"`
	Message       string `json:"message"`
	CourseID      string `json:"courseId"`
	TransactionID string `json:"transactionId"`
	PayerID       string `json:"payerId"`
}

type PaymentResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Course    *models.Course  `json:"course,omitempty"`
	Enrolled  []models.Course `json:"enrolled,omitempty"`
}

// PaymentResult handles the provider redirect:
// /payment/result?status=success&courseId=..&transactionId=..&PayerID=..
func (h *Handlers) PaymentResult(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := paymentQuery{
		Status:        q.Get("status"),
		Message:       q.Get("message"),
		CourseID:      q.Get("courseId"),
		TransactionID: q.Get("transactionId"),
		PayerID:       q.Get("PayerID"),
	}
	if req.PayerID == "" {
		req.PayerID = q.Get("payerId")
	}
	if req.TransactionID == "" {
		req.TransactionID = q.Get("token")
	}

	if err := validation.Struct(req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			fields := make(map[string]string, len(verr.Fields))
			for _, f := range verr.Fields {
				fields[f.Field] = f.Message
			}
			writeFieldErrors(w, "Invalid payment result", fields)
			return
		}
		WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := h.PaymentService.Process(r.Context(), models.PaymentResult{
		Status:        req.Status,
		Message:       req.Message,
		CourseID:      req.CourseID,
		TransactionID: req.TransactionID,
		PayerID:       req.PayerID,
	})
	if err != nil {
		h.Log.Error("processing payment result", req.TransactionID, err)
		WriteError(w, "Could not process the payment result", http.StatusBadGateway)
		return
	}
	if h.OnOutcome != nil {
		h.OnOutcome(out)
	}

	WriteSuccess(w, PaymentResponse{
		Status:    out.Status,
		Message:   out.Message,
		Duplicate: out.Duplicate,
		Course:    out.Course,
		Enrolled:  out.Enrolled,
	}, http.StatusOK)
}

