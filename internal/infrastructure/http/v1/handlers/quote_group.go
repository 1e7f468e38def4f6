package handlers

import (
	"github.com/gin-gonic/gin"

	"printq/internal/core/id"
	"printq/internal/domain/quotes"
	"printq/internal/infrastructure/http/v1/dto"
	"printq/internal/infrastructure/storage/postgres"
	"printq/pkg/logger"
)

// QuoteGroupHandler handles multi-product quote group endpoints.
type QuoteGroupHandler struct {
	*BaseHandler
	service *quotes.Service
	audit   *postgres.AuditService
}

// NewQuoteGroupHandler creates a new quote group handler.
func NewQuoteGroupHandler(service *quotes.Service, audit *postgres.AuditService) *QuoteGroupHandler {
	return &QuoteGroupHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /quote-groups.
func (h *QuoteGroupHandler) Create(c *gin.Context) {
	var req quotes.CreateGroupRequest
	if !h.BindJSON(c, &req) {
		return
	}

	g, err := h.service.CreateGroup(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, g.ID, postgres.AuditActionCreate, map[string]any{
		"number": g.Number,
		"items":  len(g.Items),
		"total":  g.Total.String(),
	})
	h.CreatedData(c, g)
}

// Get handles GET /quote-groups/:id. Returns the group with its items,
// lines and resolved customer.
func (h *QuoteGroupHandler) Get(c *gin.Context) {
	groupID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	g, cust, err := h.service.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.GroupResponse{Group: g, Customer: cust})
}

// List handles GET /quote-groups.
func (h *QuoteGroupHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.ListGroups(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// Approve handles POST /quote-groups/:id/approve.
func (h *QuoteGroupHandler) Approve(c *gin.Context) {
	groupID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	g, err := h.service.ApproveGroup(c.Request.Context(), groupID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, groupID, postgres.AuditActionApprove, map[string]any{"number": g.Number})
	h.OK(c, g)
}

func (h *QuoteGroupHandler) logAudit(c *gin.Context, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, "quote_group", entityID, action, changes); err != nil {
		logger.Warn(ctx, "audit log failed", "entity_id", entityID, "error", err)
	}
}
