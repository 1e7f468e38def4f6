package handlers

import (
	"github.com/gin-gonic/gin"

	"printq/internal/domain/catalogs/product"
	"printq/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service *product.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles POST /products. The product and its version-1 template
// are created together.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := product.NewProduct(req.Name)
	tpl, err := h.service.Create(c.Request.Context(), p, req.Template.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.ProductResponse{Product: p, Template: tpl})
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /products. A search query returns a bare match list,
// otherwise the paginated catalog listing.
func (h *ProductHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	if query.Search != "" {
		products, err := h.service.Search(c.Request.Context(), query.Search, query.Limit)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, products)
		return
	}

	result, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// GetTemplate handles GET /products/:id/template.
func (h *ProductHandler) GetTemplate(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	tpl, err := h.service.ActiveTemplate(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tpl)
}

// UpdateTemplate handles PUT /products/:id/template. Inserts a new
// template version and deactivates the previous one.
func (h *ProductHandler) UpdateTemplate(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.TemplateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tpl, err := h.service.UpdateTemplate(c.Request.Context(), productID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tpl)
}
