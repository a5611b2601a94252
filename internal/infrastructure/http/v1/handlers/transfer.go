package handlers

import (
	"github.com/gin-gonic/gin"

	"landregistry/internal/domain/transfer"
	"landregistry/internal/infrastructure/http/v1/dto"
)

// TransferHandler serves the ownership-transfer endpoints. Submission is
// synchronous so precondition violations (inactive title, open transfer) come
// back as immediate errors rather than silently dropped messages.
type TransferHandler struct {
	base      *BaseHandler
	transfers *transfer.Service
}

// NewTransferHandler creates the transfer endpoints handler.
func NewTransferHandler(base *BaseHandler, transfers *transfer.Service) *TransferHandler {
	return &TransferHandler{base: base, transfers: transfers}
}

// Create handles POST /api/v1/transfers.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.base.BindJSON(c, &req) {
		return
	}

	tr, err := h.transfers.Submit(c.Request.Context(), req.ToData())
	if err != nil {
		h.base.Error(c, err)
		return
	}

	h.base.Created(c, dto.FromTransfer(tr))
}

// GetByTitle handles GET /api/v1/titles/:titleNumber/transfer.
func (h *TransferHandler) GetByTitle(c *gin.Context) {
	tr, err := h.transfers.GetByTitle(c.Request.Context(), c.Param("titleNumber"))
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.FromTransfer(tr))
}
