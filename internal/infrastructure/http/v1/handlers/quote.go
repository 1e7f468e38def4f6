package handlers

import (
	"github.com/gin-gonic/gin"

	"printq/internal/core/id"
	"printq/internal/domain/pricing"
	"printq/internal/domain/quotes"
	"printq/internal/infrastructure/http/v1/dto"
	"printq/internal/infrastructure/storage/postgres"
	"printq/pkg/logger"
)

// QuoteHandler handles standalone quote endpoints.
type QuoteHandler struct {
	*BaseHandler
	service *quotes.Service
	audit   *postgres.AuditService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *quotes.Service, audit *postgres.AuditService) *QuoteHandler {
	return &QuoteHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Preview handles POST /quotes/preview. Runs the calculator without
// persisting anything.
func (h *QuoteHandler) Preview(c *gin.Context) {
	var req pricing.Request
	if !h.BindJSON(c, &req) {
		return
	}

	est, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, est)
}

// Create handles POST /quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req quotes.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	q, err := h.service.CreateQuote(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, q.ID, postgres.AuditActionCreate, map[string]any{
		"number":     q.Number,
		"priceFinal": q.PriceFinal.String(),
	})
	h.CreatedData(c, q)
}

// Get handles GET /quotes/:id.
func (h *QuoteHandler) Get(c *gin.Context) {
	quoteID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	q, err := h.service.GetQuote(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, q)
}

// List handles GET /quotes.
func (h *QuoteHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.ListQuotes(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// Approve handles POST /quotes/:id/approve. Caller must hold an elevated
// role; the capability check happens in routing.
func (h *QuoteHandler) Approve(c *gin.Context) {
	quoteID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	q, err := h.service.ApproveQuote(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, quoteID, postgres.AuditActionApprove, map[string]any{"number": q.Number})
	h.OK(c, q)
}

func (h *QuoteHandler) logAudit(c *gin.Context, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, "quote", entityID, action, changes); err != nil {
		logger.Warn(ctx, "audit log failed", "entity_id", entityID, "error", err)
	}
}
