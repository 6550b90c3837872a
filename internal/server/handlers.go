package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/processor"
)

const (
	// FormField is the multipart field carrying the uploaded document
	FormField = "xml_file"
	// DefaultFilename names raw-body uploads without a filename query
	DefaultFilename = "document.xml"

	prefixModified = "modified_"
	prefixParsed   = "parsed_"

	contentTypeXML = "application/xml; charset=utf-8"
)

// readUpload returns the uploaded document and its file name. It writes the
// error response itself and reports false on failure.
func (s *Server) readUpload(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadSize)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile(FormField)
		if err != nil {
			if tooLarge(err) {
				s.abort(c, http.StatusRequestEntityTooLarge, "request body too large", err)
				return "", nil, false
			}
			s.abort(c, http.StatusBadRequest, "missing "+FormField+" upload", err)
			return "", nil, false
		}
		name := filepath.Base(fh.Filename)
		if !strings.HasSuffix(name, ".xml") {
			s.abort(c, http.StatusBadRequest, "please upload an XML file", fmt.Errorf("file %q does not end in .xml", name))
			return "", nil, false
		}
		f, err := fh.Open()
		if err != nil {
			s.abort(c, http.StatusBadRequest, "failed to read upload", err)
			return "", nil, false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			s.abort(c, http.StatusBadRequest, "failed to read upload", err)
			return "", nil, false
		}
		if len(data) == 0 {
			s.abort(c, http.StatusBadRequest, "empty upload", nil)
			return "", nil, false
		}
		return name, data, true
	}

	body, err := c.GetRawData()
	if err != nil {
		if tooLarge(err) {
			s.abort(c, http.StatusRequestEntityTooLarge, "request body too large", err)
			return "", nil, false
		}
		s.abort(c, http.StatusBadRequest, "failed to read request body", err)
		return "", nil, false
	}
	if len(body) == 0 {
		s.abort(c, http.StatusBadRequest, "empty request body", nil)
		return "", nil, false
	}

	name := DefaultFilename
	if q := c.Query("filename"); q != "" {
		name = filepath.Base(q)
	}
	return name, body, true
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) handleTransformInvoice(c *gin.Context) {
	name, body, ok := s.readUpload(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	cfg, err := s.settings.Settings(ctx)
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to load settings", err)
		return
	}

	result := s.pipeline.ProcessInvoiceBytes(ctx, body, cfg)
	if result.Error != nil {
		s.abortWithResult(c, result)
		return
	}

	logger.FromContext(ctx).Info("invoice transformed",
		"file", name,
		"created_items", result.Report.CreatedItems,
		"warnings", len(result.Warnings),
		"duration", result.Duration,
	)

	c.Header("X-Transform-Warnings", strconv.Itoa(len(result.Warnings)))
	s.attachment(c, prefixModified+name, result.Output)
}

func (s *Server) handleConvertReceipt(c *gin.Context) {
	name, body, ok := s.readUpload(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result := s.pipeline.ProcessReceiptBytes(ctx, body)
	if result.Error != nil {
		s.abortWithResult(c, result)
		return
	}

	c.Header("X-Receipt-Items", strconv.Itoa(len(result.Items)))
	s.attachment(c, prefixParsed+name, result.Output)
}

func (s *Server) handleDetect(c *gin.Context) {
	_, body, ok := s.readUpload(c)
	if !ok {
		return
	}

	det, err := processor.Detect(body)
	if err != nil {
		s.abort(c, statusFor(err), "document could not be inspected", err)
		return
	}
	c.JSON(http.StatusOK, det)
}

func (s *Server) handleListSettings(c *gin.Context) {
	list, err := s.settings.List(c.Request.Context())
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to list settings", err)
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Settings: list})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		s.abort(c, http.StatusBadRequest, "expected a JSON object of setting codes to values", err)
		return
	}

	updated, err := s.settings.Update(c.Request.Context(), values)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			s.abort(c, http.StatusBadRequest, "invalid settings", err)
			return
		}
		s.abort(c, http.StatusInternalServerError, "failed to update settings", err)
		return
	}
	if updated == nil {
		updated = []string{}
	}
	c.JSON(http.StatusOK, UpdateSettingsResponse{Updated: updated})
}

func (s *Server) attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentTypeXML, data)
}

func (s *Server) abortWithResult(c *gin.Context, result *processor.Result) {
	resp := ErrorResponse{
		Error:     "document could not be processed",
		Details:   result.Error.Error(),
		Warnings:  result.Warnings,
		RequestID: c.GetString(contextKeyRequestID),
	}
	c.AbortWithStatusJSON(statusFor(result.Error), resp)
}

func (s *Server) abort(c *gin.Context, status int, msg string, err error) {
	resp := ErrorResponse{
		Error:     msg,
		RequestID: c.GetString(contextKeyRequestID),
	}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// statusFor maps transform errors to HTTP status codes
func statusFor(err error) int {
	var (
		feedErr    *model.FeedUnavailableError
		parseErr   *model.ParseError
		nsErr      *model.NamespaceResolutionError
		receiptErr *model.ReceiptParseError
		validErr   *model.ValidationError
		transErr   *model.TransformError
	)
	switch {
	case errors.As(err, &feedErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &parseErr),
		errors.As(err, &nsErr),
		errors.As(err, &receiptErr),
		errors.As(err, &validErr),
		errors.As(err, &transErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
