package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/musicability-api/internal/api/middleware"
	"github.com/Conceptual-Machines/musicability-api/internal/history"
	"github.com/Conceptual-Machines/musicability-api/internal/logger"
	"github.com/Conceptual-Machines/musicability-api/internal/midi"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/Conceptual-Machines/musicability-api/internal/payload"
	"github.com/Conceptual-Machines/musicability-api/internal/preview"
	"github.com/Conceptual-Machines/musicability-api/internal/services"
)

type MelodyHandler struct {
	svc      *services.MelodyService
	maxNotes int
}

func NewMelodyHandler(svc *services.MelodyService, maxNotes int) *MelodyHandler {
	return &MelodyHandler{svc: svc, maxNotes: maxNotes}
}

// NormalizeResponse is the canonical form of a submitted description
type NormalizeResponse struct {
	Description     models.CanonicalDescription `json:"description"`
	TotalBeats      float64                     `json:"total_beats"`
	DurationSeconds float64                     `json:"duration_seconds"`
	Warnings        []payload.Warning           `json:"warnings"`
}

// MelodyResponse is a saved melody with its download links
type MelodyResponse struct {
	*models.GenerationRecord
	Description *models.CanonicalDescription `json:"description,omitempty"`
	MIDIURL     string                       `json:"midi_url"`
	PreviewURL  string                       `json:"preview_url"`
}

func newMelodyResponse(r *models.GenerationRecord) MelodyResponse {
	return MelodyResponse{
		GenerationRecord: r,
		MIDIURL:          melodiesPath + "/" + r.ID + "/midi",
		PreviewURL:       melodiesPath + "/" + r.ID + "/preview",
	}
}

// RenderMIDI encodes the posted description and returns the .mid file
func (h *MelodyHandler) RenderMIDI(c *gin.Context) {
	d, warnings, ok := h.readDescription(c)
	if !ok {
		return
	}

	result, err := h.svc.Render(c.Request.Context(), d)
	if err != nil {
		respondError(c, "render MIDI", err)
		return
	}

	setWarningsHeader(c, warnings)
	sendFile(c, "attachment", result.Filename, midiContentType, result.MIDI)
}

// RenderPreview synthesizes a WAV preview of the posted description
func (h *MelodyHandler) RenderPreview(c *gin.Context) {
	d, warnings, ok := h.readDescription(c)
	if !ok {
		return
	}

	result, err := h.svc.Preview(c.Request.Context(), d)
	if err != nil {
		respondError(c, "render preview", err)
		return
	}

	setWarningsHeader(c, warnings)
	sendFile(c, "inline", result.Filename, wavContentType, result.WAV)
}

// Normalize returns the canonical form the encoder would use
func (h *MelodyHandler) Normalize(c *gin.Context) {
	d, warnings, ok := h.readDescription(c)
	if !ok {
		return
	}

	canonical := h.svc.Normalize(d)
	if warnings == nil {
		warnings = []payload.Warning{}
	}
	c.JSON(http.StatusOK, NormalizeResponse{
		Description:     canonical,
		TotalBeats:      canonical.TotalBeats(),
		DurationSeconds: canonical.Duration().Seconds(),
		Warnings:        warnings,
	})
}

// Save renders the posted description and stores it in the history
func (h *MelodyHandler) Save(c *gin.Context) {
	d, warnings, ok := h.readDescription(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserID(c)
	record, err := h.svc.Save(c.Request.Context(), d, services.Owner{
		UserID:    userID,
		RequestID: c.GetString("request_id"),
	})
	if err != nil {
		respondError(c, "save melody", err)
		return
	}

	setWarningsHeader(c, warnings)
	c.JSON(http.StatusCreated, newMelodyResponse(record))
}

// List returns the caller's saved melodies, newest first
func (h *MelodyHandler) List(c *gin.Context) {
	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	userID, _ := middleware.GetUserID(c)
	records, err := h.svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, "list melodies", err)
		return
	}

	melodies := make([]MelodyResponse, 0, len(records))
	for i := range records {
		melodies = append(melodies, newMelodyResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"melodies": melodies,
		"count":    len(melodies),
		"limit":    history.ClampLimit(limit),
	})
}

// Get returns one saved melody including its canonical description
func (h *MelodyHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	record, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "get melody", err)
		return
	}

	resp := newMelodyResponse(record)
	canonical, err := record.CanonicalDescription()
	if err != nil {
		respondError(c, "get melody", err)
		return
	}
	resp.Description = &canonical
	c.JSON(http.StatusOK, resp)
}

// DownloadMIDI returns the stored .mid file of a saved melody
func (h *MelodyHandler) DownloadMIDI(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	record, data, err := h.svc.OpenMIDI(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "download MIDI", err)
		return
	}
	sendFile(c, "attachment", record.Filename, midiContentType, data)
}

// PreviewSaved returns a WAV preview of a saved melody
func (h *MelodyHandler) PreviewSaved(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	result, err := h.svc.PreviewSaved(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "preview melody", err)
		return
	}
	sendFile(c, "inline", result.Filename, wavContentType, result.WAV)
}

// readDescription decodes the request body. The body format follows the
// Content-Type unless ?format= is given; ?select= applies a jq expression.
func (h *MelodyHandler) readDescription(c *gin.Context) (models.MusicalDescription, []payload.Warning, bool) {
	format := payload.FormatFromContentType(c.ContentType())
	if name := c.Query("format"); name != "" {
		parsed, err := payload.ParseFormat(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": c.GetString("request_id")})
			return models.MusicalDescription{}, nil, false
		}
		format = parsed
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, "read body", err)
		return models.MusicalDescription{}, nil, false
	}

	d, warnings, err := payload.Decode(data, payload.Options{
		Format:   format,
		Query:    c.Query("select"),
		MaxNotes: h.maxNotes,
	})
	if err != nil {
		respondError(c, "decode description", err)
		return models.MusicalDescription{}, nil, false
	}

	if len(warnings) > 0 {
		fields := logger.WithContext(c)
		fields["warnings"] = len(warnings)
		fields["format"] = string(format)
		logger.Debug("Description decoded with warnings", fields)
	}
	return d, warnings, true
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	var encErr *midi.EncodingError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, payload.ErrMalformed):
		status = http.StatusBadRequest
	case errors.Is(err, payload.ErrTooManyNotes), errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &encErr), errors.Is(err, preview.ErrTooLong):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	}

	body := gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	}
	if encErr != nil {
		body["field"] = encErr.Field
		if encErr.Index >= 0 {
			body["index"] = encErr.Index
		}
	}

	if status == http.StatusInternalServerError {
		fields := logger.WithContext(c)
		fields["operation"] = operation
		logger.Error("Request failed", err, fields)
		body["error"] = "Failed to " + operation
	}
	c.JSON(status, body)
}

func setWarningsHeader(c *gin.Context, warnings []payload.Warning) {
	c.Header(warningsHeader, strconv.Itoa(len(warnings)))
}

func sendFile(c *gin.Context, disposition, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}
