package rest

import (
	"context"
	"errors"
	"imagio/internal/core/domain"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes caps multipart upload payloads.
const maxUploadBytes = 32 << 20

type imageResponse struct {
	Ref       string    `json:"uuid"`
	Category  string    `json:"category"`
	MIME      string    `json:"mime"`
	CreatedAt time.Time `json:"createTime"`
}

func toResponse(record *domain.ImageRecord) imageResponse {
	return imageResponse{
		Ref:       record.Ref.String(),
		Category:  record.Category,
		MIME:      record.MIME,
		CreatedAt: record.CreatedAt,
	}
}

func (s *Server) handleVariant(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}

	spec, ok := domain.VariantSpec(c.Param("variant"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant"})
		return
	}

	s.render(c, ref, spec)
}

func (s *Server) handleTransform(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}

	spec, err := parseSpec(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.render(c, ref, spec)
}

func (s *Server) render(c *gin.Context, ref uuid.UUID, spec domain.TransformSpec) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	artifact, err := s.renderer.Render(ctx, ref, spec)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, artifact.MIME, artifact.Data)
}

func (s *Server) handleGetImage(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}

	record, err := s.catalog.Resolve(c.Request.Context(), ref)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(record))
}

func (s *Server) handleListImages(c *gin.Context) {
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	skip, err := strconv.Atoi(c.Param("skip"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid skip"})
		return
	}

	records, err := s.catalog.List(c.Request.Context(), c.Param("category"), limit, skip)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responses := make([]imageResponse, 0, len(records))
	for i := range records {
		responses = append(responses, toResponse(&records[i]))
	}

	c.JSON(http.StatusOK, responses)
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	record, err := s.ingestor.Upload(c.Request.Context(), c.Param("category"), data)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(record))
}

func (s *Server) handleDelete(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}

	if err := s.ingestor.Purge(c.Request.Context(), ref); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseRef(c *gin.Context) (uuid.UUID, bool) {
	ref, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return ref, true
}

// abortWithError maps the error taxonomy onto status codes. Anything outside
// the taxonomy is a plain 500.
func abortWithError(c *gin.Context, err error) {
	var status int

	switch {
	case errors.Is(err, domain.ErrUnknownImage), errors.Is(err, domain.ErrBlobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedOperation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDecode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSourceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
