package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/textra-dev/textra/internal/common"
	"github.com/textra-dev/textra/internal/export"
	"github.com/textra-dev/textra/internal/format"
	"github.com/textra-dev/textra/internal/jobs"
	"github.com/textra-dev/textra/internal/kvstore"
)

// providerConfigKey is the settings key under which the browser persists its
// provider configuration; writes to it are schema-checked.
const providerConfigKey = "provider_config"

type errorBody struct {
	Code              string  `json:"code"`
	Message           string  `json:"message"`
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// respondClassified maps a classified error to an HTTP status and surfaces
// its message verbatim, plus enough structure for the caller to decide
// whether retry is sensible.
func respondClassified(c *gin.Context, err error) {
	code := common.CodeOf(err)
	body := errorBody{Code: code, Message: err.Error()}

	var status int
	switch code {
	case common.CodeInvalidProvider, common.CodeMissingCredential, common.CodeUnsupportedType:
		status = http.StatusBadRequest
	case common.CodeTimeout:
		status = http.StatusGatewayTimeout
	case common.CodeModelLoading:
		status = http.StatusServiceUnavailable
		var ml *format.ModelLoadingError
		if errors.As(err, &ml) {
			body.RetryAfterSeconds = ml.RetryAfter.Seconds()
		}
	case common.CodeProviderError:
		status = http.StatusBadGateway
	case common.CodeNoTextFound, common.CodeDecodeError, common.CodeRecognitionInitFailed:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
		body.Code = "INTERNAL"
	}
	c.JSON(status, gin.H{"error": body})
}

// DocumentHandler exposes the extraction half over HTTP.
type DocumentHandler struct {
	svc    *Service
	store  *jobs.Store
	logger *slog.Logger
}

func NewDocumentHandler(svc *Service, store *jobs.Store, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{svc: svc, store: store, logger: logger}
}

// Upload handles POST /api/v1/documents.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart field 'file' is required")
		return
	}
	src, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "unreadable upload")
		return
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			h.logger.Warn("upload.close", "error", cerr)
		}
	}()

	job, err := h.svc.Submit(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, src)
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// GetByID handles GET /api/v1/documents/:id.
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "id must be a UUID")
		return
	}
	job, ok := h.store.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "no such document")
		return
	}
	c.JSON(http.StatusOK, job)
}

// Retry handles POST /api/v1/documents/:id/retry.
func (h *DocumentHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "id must be a UUID")
		return
	}
	job, err := h.svc.Retry(id)
	if err != nil {
		respondError(c, http.StatusConflict, "INVALID_STATE", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// Delete handles DELETE /api/v1/documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "id must be a UUID")
		return
	}
	if !h.svc.Remove(id) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "no such document")
		return
	}
	c.Status(http.StatusNoContent)
}

// FormatHandler exposes the formatting dispatcher over HTTP.
type FormatHandler struct {
	svc *Service
}

func NewFormatHandler(svc *Service) *FormatHandler {
	return &FormatHandler{svc: svc}
}

// Format handles POST /api/v1/format.
func (h *FormatHandler) Format(c *gin.Context) {
	var req struct {
		Config       format.Config `json:"config"`
		Instruction  string        `json:"instruction" binding:"required"`
		Text         string        `json:"text" binding:"required"`
		OutputFormat string        `json:"output_format"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "instruction and text are required")
		return
	}

	out, err := h.svc.Format(c.Request.Context(), req.Config, req.Instruction, req.Text, req.OutputFormat)
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": out})
}

// SettingsHandler persists presentation-layer settings in the kv store.
type SettingsHandler struct {
	kv *kvstore.Store
}

func NewSettingsHandler(kv *kvstore.Store) *SettingsHandler {
	return &SettingsHandler{kv: kv}
}

// Get handles GET /api/v1/settings/:key.
func (h *SettingsHandler) Get(c *gin.Context) {
	value, err := h.kv.Load(c.Request.Context(), c.Param("key"), "")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

// Put handles PUT /api/v1/settings/:key.
func (h *SettingsHandler) Put(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be {\"value\": ...}")
		return
	}
	if c.Param("key") == providerConfigKey {
		if err := format.ValidateConfigJSON([]byte(req.Value)); err != nil {
			respondClassified(c, err)
			return
		}
	}
	if err := h.kv.Save(c.Request.Context(), c.Param("key"), req.Value); err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/settings/:key.
func (h *SettingsHandler) Delete(c *gin.Context) {
	if err := h.kv.Remove(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportHandler serves the job-history workbook.
type ExportHandler struct {
	svc *export.Service
}

func NewExportHandler(svc *export.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Export handles GET /api/v1/export.
func (h *ExportHandler) Export(c *gin.Context) {
	data, err := h.svc.JobsXLSX()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// WSHandler upgrades clients onto the progress hub.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			// the daemon serves a local browser app; same-host pages only
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /ws.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws.upgrade_failed", "error", err)
		return
	}
	h.hub.RegisterClient(conn)
	go h.drain(conn)
}

// drain consumes client frames until the peer goes away.
func (h *WSHandler) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.hub.UnregisterClient(conn)
			return
		}
	}
}
