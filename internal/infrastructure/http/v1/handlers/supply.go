package handlers

import (
	"github.com/gin-gonic/gin"

	"printq/internal/core/id"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/infrastructure/http/v1/dto"
	"printq/internal/infrastructure/storage/postgres"
	"printq/pkg/logger"
)

// SupplyHandler handles supply catalog endpoints.
type SupplyHandler struct {
	*BaseHandler
	service *supply.Service
	audit   *postgres.AuditService
}

// NewSupplyHandler creates a new supply handler.
func NewSupplyHandler(service *supply.Service, audit *postgres.AuditService) *SupplyHandler {
	return &SupplyHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /supplies.
func (h *SupplyHandler) Create(c *gin.Context) {
	var req dto.CreateSupplyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sup := req.ToSupply()
	if err := h.service.Create(c.Request.Context(), sup); err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, sup.ID, postgres.AuditActionCreate, map[string]any{"name": sup.Name})
	h.Created(c, sup.ID.String())
}

// Get handles GET /supplies/:id.
func (h *SupplyHandler) Get(c *gin.Context) {
	supplyID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sup, err := h.service.GetByID(c.Request.Context(), supplyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sup)
}

// List handles GET /supplies.
func (h *SupplyHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// RecordPurchase handles POST /supplies/:id/purchases.
func (h *SupplyHandler) RecordPurchase(c *gin.Context) {
	supplyID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sup, purchase, err := h.service.RecordPurchase(c.Request.Context(), req.ToRequest(supplyID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, supplyID, postgres.AuditActionPurchase, map[string]any{
		"qty":       purchase.Qty.String(),
		"totalCost": purchase.TotalCost.String(),
	})
	h.CreatedData(c, dto.PurchaseResponse{Purchase: purchase, Supply: sup})
}

func (h *SupplyHandler) logAudit(c *gin.Context, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, "supply", entityID, action, changes); err != nil {
		logger.Warn(ctx, "audit log failed", "entity_id", entityID, "error", err)
	}
}
