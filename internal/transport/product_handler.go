package transport

import (
	"io"
	"net/http"
	"strings"

	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"
	"catalog-api/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxImageSize caps product image uploads at 10 MiB
const maxImageSize = 10 << 20

// ProductCreateRequest represents the create product payload
type ProductCreateRequest struct {
	Brand       string  `json:"brand" validate:"required"`
	Model       string  `json:"model" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
}

// ProductUpdateRequest represents the partial update payload. Absent
// fields keep the stored value.
type ProductUpdateRequest struct {
	Brand       *string  `json:"brand,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category    string   `json:"category,omitempty"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	blobs          storage.BlobStore
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, blobs storage.BlobStore, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		blobs:          blobs,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Mutations require an
// authenticated admin.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)
		r.Get("/uuid/{uuid}", h.GetByUUID)
		r.Get("/{id}/image", h.GetImage)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Patch("/{id}/image", h.UpdateImage)
		})
	})
}

// List handles GET /api/products with optional brand and category
// substring filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		Brand:    r.URL.Query().Get("brand"),
		Category: r.URL.Query().Get("category"),
	}

	products, err := h.productService.FindAll(r.Context(), filter)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.FindByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetByUUID handles GET /api/products/uuid/{uuid}. The uuid is passed
// through raw so the service can distinguish malformed from unknown.
func (h *ProductHandler) GetByUUID(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.FindByUUID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductCreateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	product, err := h.productService.Save(r.Context(), service.CreateProductInput{
		Brand:       req.Brand,
		Model:       req.Model,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created via API",
		zap.Int64("product_id", product.ID),
		zap.String("uuid", product.UUID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ProductUpdateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	product, err := h.productService.Update(r.Context(), id, service.UpdateProductInput{
		Brand:       req.Brand,
		Model:       req.Model,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.productService.DeleteByID(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateImage handles PATCH /api/products/{id}/image with a multipart
// form carrying the image under the "file" field
func (h *ProductHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	// Read one byte past the cap to tell an at-limit image from an
	// oversized one instead of silently truncating it
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) > maxImageSize {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "image exceeds the size limit")
		return
	}

	product, err := h.productService.UpdateImage(r.Context(), id, data)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetImage handles GET /api/products/{id}/image, streaming the stored
// blob. Products still on the default placeholder redirect to it.
func (h *ProductHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.FindByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}

	if strings.HasPrefix(product.Image, "http") {
		http.Redirect(w, r, product.Image, http.StatusTemporaryRedirect)
		return
	}

	blob, err := h.blobs.Open(r.Context(), product.Image)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err)
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, blob); err != nil {
		h.logger.Warn("Failed to stream product image",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
	}
}
