package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "landregistry/internal/core/context"
	"landregistry/internal/domain/title"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/http/v1/dto"
)

// TitleHandler serves the land-title endpoints. Registration is asynchronous:
// the request is validated, published to the registry's own queue and
// acknowledged with 202; the saga takes it from there.
type TitleHandler struct {
	base      *BaseHandler
	titles    *title.Service
	publisher events.Publisher
}

// NewTitleHandler creates the title endpoints handler.
func NewTitleHandler(base *BaseHandler, titles *title.Service, publisher events.Publisher) *TitleHandler {
	return &TitleHandler{base: base, titles: titles, publisher: publisher}
}

// Create handles POST /api/v1/titles.
func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.CreateTitleRequest
	if !h.base.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	body, err := events.EncodeCreate(h.base.TransactionID(c), appctx.GetUserID(ctx), req.ToData())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	if err := h.publisher.Publish(ctx, events.QueueLandRegistry, body); err != nil {
		h.base.Error(c, err)
		return
	}

	h.base.Accepted(c, "land title registration queued")
}

// Get handles GET /api/v1/titles/:titleNumber.
func (h *TitleHandler) Get(c *gin.Context) {
	t, err := h.titles.Get(c.Request.Context(), c.Param("titleNumber"))
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.FromTitle(t))
}

// List handles GET /api/v1/titles.
func (h *TitleHandler) List(c *gin.Context) {
	limit := h.base.ParseIntQuery(c, "limit", 50)
	offset := h.base.ParseIntQuery(c, "offset", 0)

	titles, err := h.titles.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.base.Error(c, err)
		return
	}

	items := make([]dto.TitleResponse, 0, len(titles))
	for _, t := range titles {
		items = append(items, dto.FromTitle(t))
	}
	h.base.OK(c, dto.TitleListResponse{
		Items: items,
		Meta:  dto.ListMeta{Limit: limit, Offset: offset, Count: len(items)},
	})
}
