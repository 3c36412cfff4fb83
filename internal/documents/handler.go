package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docarchive-backend/internal/archive"
	"docarchive-backend/internal/shared/server/respond"
)

// maxRequestBytes caps the multipart body above the 50 MB document limit so
// an oversize file still reaches the validator and gets the canonical size
// error instead of a truncated-body failure.
const maxRequestBytes = 64 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// Upload handles POST /api/upload: one multipart file under field "document".
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	fileHeader, err := c.FormFile("document")
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "unable to read file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "unable to read file")
		return
	}

	out, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Name: fileHeader.Filename,
		Size: fileHeader.Size,
		Data: data,
	})
	if err != nil {
		var storageErr *archive.StorageError
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Fail(c, http.StatusBadRequest, "invalid file name")
		case errors.As(err, &storageErr):
			respond.Fail(c, http.StatusInternalServerError, "failed to archive document")
		default:
			// Validation, extraction and signing failures are
			// request-level.
			respond.Fail(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	c.Set("documentId", out.Document.ID)
	respond.OK(c, UploadResponse{
		Success:  true,
		Document: toResponse(out.Document),
		Token:    out.Token,
	})
}

// List handles GET /api/documents with an optional ?type= filter.
func (h *Handler) List(c *gin.Context) {
	var (
		docs []archive.Document
		err  error
	)
	if raw := c.Query("type"); raw != "" {
		typ, perr := archive.ParseDocumentType(raw)
		if perr != nil {
			respond.Fail(c, http.StatusBadRequest, perr.Error())
			return
		}
		docs, err = h.Svc.ListByType(c.Request.Context(), typ)
	} else {
		docs, err = h.Svc.List(c.Request.Context())
	}
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, "failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, resp)
}

// File handles GET /api/documents/:id/file, serving the archived payload.
func (h *Handler) File(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid document id")
		return
	}

	blob, err := h.Svc.FileFor(c.Request.Context(), id)
	if err != nil {
		if archive.IsNotFound(err) {
			respond.Fail(c, http.StatusNotFound, "document not found")
			return
		}
		respond.Fail(c, http.StatusInternalServerError, "failed to fetch file")
		return
	}
	if blob == nil {
		// Degraded-available document: metadata exists, payload does
		// not. Absence is a normal state, not a server error.
		respond.Fail(c, http.StatusNotFound, "file not available")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+blob.Name+`"`)
	c.Data(http.StatusOK, blob.MimeType, blob.Payload)
}
