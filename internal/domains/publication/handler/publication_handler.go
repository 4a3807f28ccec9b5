package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-backend/internal/domains/publication/model"
	"marketplace-backend/internal/domains/publication/service"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
)

type PublicationHandler struct {
	service service.Service
}

func NewHandler(service service.Service) *PublicationHandler {
	return &PublicationHandler{service: service}
}

// ListActive - GET /v1/posts
func (h *PublicationHandler) ListActive(c *gin.Context) {
	summaries, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summaries)
}

// GetByID - GET /v1/posts/:id
func (h *PublicationHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid publication id")
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// ListMine - GET /v1/posts/user/myposts
func (h *PublicationHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	summaries, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summaries)
}

// Create - POST /v1/posts (multipart/form-data)
func (h *PublicationHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	price, ok := parsePrice(c)
	if !ok {
		return
	}
	images, ok := collectUploads(c)
	if !ok {
		return
	}

	in := model.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Price:       price,
		Images:      images,
	}

	created, err := h.service.Create(c.Request.Context(), userID, in)
	if err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// Update - PUT /v1/posts/:id (multipart/form-data)
func (h *PublicationHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid publication id")
		return
	}

	price, ok := parsePrice(c)
	if !ok {
		return
	}
	images, ok := collectUploads(c)
	if !ok {
		return
	}
	removeIDs, ok := parseRemoveIDs(c)
	if !ok {
		return
	}

	in := model.UpdateInput{
		Title:          c.PostForm("title"),
		Description:    c.PostForm("description"),
		Price:          price,
		RemoveImageIDs: removeIDs,
		Images:         images,
	}

	updated, err := h.service.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

// Delete - DELETE /v1/posts/:id
func (h *PublicationHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid publication id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "publication deleted"})
}

// SetState - PATCH /v1/posts/:id/state
func (h *PublicationHandler) SetState(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid publication id")
		return
	}

	var body struct {
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.service.SetState(c.Request.Context(), userID, id, body.State); err != nil {
		model.HandlePublicationError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "state updated"})
}

func parsePrice(c *gin.Context) (decimal.Decimal, bool) {
	raw := c.PostForm("price")
	if raw == "" {
		response.BadRequest(c, "price is required")
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		response.BadRequest(c, "price must be a number")
		return decimal.Decimal{}, false
	}
	return price, true
}

// collectUploads reads every "images" part into memory. The per-file size cap
// is enforced while reading so an oversized upload cannot exhaust memory.
func collectUploads(c *gin.Context) ([]model.ImageUpload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "expected multipart/form-data")
		return nil, false
	}

	files := form.File["images"]
	uploads := make([]model.ImageUpload, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			model.HandlePublicationError(c, err)
			return nil, false
		}
		uploads = append(uploads, model.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, true
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Read one byte past the cap so Process can reject with the right error.
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// parseRemoveIDs decodes the optional images_to_remove form field, a JSON
// array of image ids.
func parseRemoveIDs(c *gin.Context) ([]uuid.UUID, bool) {
	raw := c.PostForm("images_to_remove")
	if raw == "" {
		return nil, true
	}

	var idStrs []string
	if err := json.Unmarshal([]byte(raw), &idStrs); err != nil {
		response.BadRequest(c, "images_to_remove must be a JSON array of ids")
		return nil, false
	}

	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, s := range idStrs {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "images_to_remove contains an invalid id")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
