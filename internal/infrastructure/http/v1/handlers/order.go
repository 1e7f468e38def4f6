package handlers

import (
	"github.com/gin-gonic/gin"

	"printq/internal/core/id"
	"printq/internal/domain/orders"
	"printq/internal/infrastructure/http/v1/dto"
	"printq/internal/infrastructure/storage/postgres"
	"printq/pkg/logger"
)

// OrderHandler handles quote-to-order conversion endpoints.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
	audit   *postgres.AuditService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service *orders.Service, audit *postgres.AuditService) *OrderHandler {
	return &OrderHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// ConvertQuote handles POST /quotes/:id/convert. Deducts stock for every
// line atomically and marks the quote converted. Expired quotes need
// supervisor credentials in the body.
func (h *OrderHandler) ConvertQuote(c *gin.Context) {
	quoteID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ConvertRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	q, err := h.service.ConvertQuote(c.Request.Context(), quoteID, req.Supervisor)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, "quote", quoteID, map[string]any{"number": q.Number})
	h.OK(c, q)
}

// ConvertGroup handles POST /quote-groups/:id/convert.
func (h *OrderHandler) ConvertGroup(c *gin.Context) {
	groupID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ConvertRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	g, err := h.service.ConvertGroup(c.Request.Context(), groupID, req.Supervisor)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, "quote_group", groupID, map[string]any{"number": g.Number})
	h.OK(c, g)
}

func (h *OrderHandler) logAudit(c *gin.Context, entityType string, entityID id.ID, changes map[string]any) {
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, entityType, entityID, postgres.AuditActionConvert, changes); err != nil {
		logger.Warn(ctx, "audit log failed", "entity_id", entityID, "error", err)
	}
}
