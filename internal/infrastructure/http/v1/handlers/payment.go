package handlers

import (
	"github.com/gin-gonic/gin"

	"landregistry/internal/domain/payment"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/http/v1/dto"
)

// PaymentHandler serves the payment endpoints. Mutations are asynchronous:
// they publish to the payment service's own queue so HTTP-triggered and
// saga-triggered work flows through the identical consume path.
type PaymentHandler struct {
	base      *BaseHandler
	payments  *payment.Service
	publisher events.Publisher
}

// NewPaymentHandler creates the payment endpoints handler.
func NewPaymentHandler(base *BaseHandler, payments *payment.Service, publisher events.Publisher) *PaymentHandler {
	return &PaymentHandler{base: base, payments: payments, publisher: publisher}
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !h.base.BindJSON(c, &req) {
		return
	}

	body, err := events.Encode(events.TypePaymentCreate, h.base.TransactionID(c), req.ToData())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), events.QueuePayment, body); err != nil {
		h.base.Error(c, err)
		return
	}

	h.base.Accepted(c, "payment creation queued")
}

// UpdateStatus handles POST /api/v1/payments/:paymentID/status.
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if !h.base.BindJSON(c, &req) {
		return
	}

	body, err := events.Encode(events.TypePaymentUpdateStatus, h.base.TransactionID(c), events.PaymentUpdateStatus{
		PaymentID: c.Param("paymentID"),
		Status:    req.Status,
		Actor:     req.Actor,
	})
	if err != nil {
		h.base.Error(c, err)
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), events.QueuePayment, body); err != nil {
		h.base.Error(c, err)
		return
	}

	h.base.Accepted(c, "payment status update queued")
}

// Get handles GET /api/v1/payments/:paymentID.
func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payments.Get(c.Request.Context(), c.Param("paymentID"))
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.FromPayment(p))
}
