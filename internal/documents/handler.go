package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/shared/server/middleware"
	"knowledge-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.listDocuments)
	rg.POST("/documents", h.uploadDocument)
	rg.DELETE("/documents/:id", h.deleteDocument)
	rg.GET("/documents/view", h.viewDocument)
}

func (h *Handler) listDocuments(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	scope, err := ParseScope(c.Query("scope"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "scope must be MY, COMPANY or ALL", nil)
		return
	}
	c.Set("scope", string(scope))

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	page, err := h.Svc.List(c.Request.Context(), userID, scope, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	respond.JSON(c, http.StatusOK, toListResponse(page, limit, offset))
}

func (h *Handler) uploadDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file field is required", nil)
		return
	}
	defer file.Close()

	shared := false
	if v := c.PostForm("shared"); v != "" {
		shared, _ = strconv.ParseBool(v)
	}

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:  userID,
		Admin:    isAdmin,
		FileName: header.Filename,
		Category: c.PostForm("category"),
		IsShared: shared,
		Body:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "only admins may upload company documents", nil)
		case errors.Is(err, ErrEmptyFile):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
		case errors.Is(err, ErrFileTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", nil)
		case errors.Is(err, ErrExtension):
			respond.Error(c, http.StatusBadRequest, "unsupported_type", "file type is not supported", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid upload request", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) deleteDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}
	c.Set("documentId", documentID)

	err := h.Svc.Delete(c.Request.Context(), userID, isAdmin, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you are not allowed to delete this document", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) viewDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	ref := c.Query("id")
	if ref == "" {
		ref = c.Query("key")
	}
	if ref == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id or key query parameter is required", nil)
		return
	}

	url, err := h.Svc.SignedViewURL(c.Request.Context(), userID, ref)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you are not allowed to view this document", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document reference", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create view url", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"url": url})
}
