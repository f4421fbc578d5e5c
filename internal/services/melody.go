package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/Conceptual-Machines/musicability-api/internal/history"
	"github.com/Conceptual-Machines/musicability-api/internal/logger"
	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/metrics"
	"github.com/Conceptual-Machines/musicability-api/internal/midi"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/Conceptual-Machines/musicability-api/internal/preview"
	"github.com/Conceptual-Machines/musicability-api/internal/storage"
)

const (
	defaultBaseName = "musicability"
	maxSlugLength   = 64

	renderKindMIDI    = "midi"
	renderKindPreview = "preview"
)

// Owner identifies who asked for a saved melody
type Owner struct {
	UserID    string
	RequestID string
}

// RenderResult is an encoded melody ready to be served
type RenderResult struct {
	Canonical models.CanonicalDescription
	MIDI      []byte
	Filename  string
}

// PreviewResult is a synthesized WAV preview
type PreviewResult struct {
	Canonical models.CanonicalDescription
	WAV       []byte
	Filename  string
}

// MelodyService turns musical descriptions into MIDI files and previews,
// and keeps the ones users save
type MelodyService struct {
	history    history.Store
	files      storage.FileStore
	cloudwatch *metrics.Client
	sentry     *metrics.SentryMetrics
	stats      metrics.RenderStats
	policy     melody.Policy
	sampleRate int
}

func NewMelodyService(store history.Store, files storage.FileStore, cw *metrics.Client, sampleRate int) *MelodyService {
	return &MelodyService{
		history:    store,
		files:      files,
		cloudwatch: cw,
		sentry:     metrics.NewSentryMetrics(),
		policy:     melody.DefaultPolicy(),
		sampleRate: sampleRate,
	}
}

// Normalize repairs a description into its canonical form
func (s *MelodyService) Normalize(d models.MusicalDescription) models.CanonicalDescription {
	return s.policy.Normalize(d)
}

// Render normalizes and encodes a description as a Type-0 MIDI file
func (s *MelodyService) Render(ctx context.Context, d models.MusicalDescription) (*RenderResult, error) {
	return s.renderCanonical(ctx, s.policy.Normalize(d))
}

func (s *MelodyService) renderCanonical(ctx context.Context, c models.CanonicalDescription) (*RenderResult, error) {
	start := time.Now()
	data, err := midi.Encode(c)
	s.record(ctx, renderKindMIDI, time.Since(start), len(c.Melody), len(data), err)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Canonical: c,
		MIDI:      data,
		Filename:  Filename(c.Title, ".mid"),
	}, nil
}

// Preview normalizes a description and synthesizes a WAV preview of it
func (s *MelodyService) Preview(ctx context.Context, d models.MusicalDescription) (*PreviewResult, error) {
	return s.previewCanonical(ctx, s.policy.Normalize(d))
}

func (s *MelodyService) previewCanonical(ctx context.Context, c models.CanonicalDescription) (*PreviewResult, error) {
	start := time.Now()
	wav, err := preview.Render(c, preview.Options{SampleRate: s.sampleRate})
	s.record(ctx, renderKindPreview, time.Since(start), len(c.Melody), len(wav), err)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Canonical: c,
		WAV:       wav,
		Filename:  Filename(c.Title, ".wav"),
	}, nil
}

// Save renders a description, stores the MIDI artifact and records it in the history
func (s *MelodyService) Save(ctx context.Context, d models.MusicalDescription, owner Owner) (*models.GenerationRecord, error) {
	result, err := s.Render(ctx, d)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	record, err := models.NewGenerationRecord(id, result.Canonical, len(result.MIDI))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation record: %w", err)
	}
	record.UserID = owner.UserID
	record.RequestID = owner.RequestID
	record.Filename = result.Filename
	record.ArtifactPath = storage.MelodyPath(id)

	if err := storage.WriteFile(ctx, s.files, record.ArtifactPath, result.MIDI); err != nil {
		return nil, fmt.Errorf("failed to store MIDI artifact: %w", err)
	}

	if err := s.history.Save(ctx, record); err != nil {
		if delErr := s.files.Delete(ctx, record.ArtifactPath); delErr != nil {
			logger.Warn("Failed to remove orphaned artifact", logger.Fields{
				"id":    id,
				"path":  record.ArtifactPath,
				"error": delErr.Error(),
			})
		}
		return nil, fmt.Errorf("failed to save generation record: %w", err)
	}

	logger.Info("Melody saved", logger.Fields{
		"id":         id,
		"user_id":    owner.UserID,
		"request_id": owner.RequestID,
		"notes":      record.NoteCount,
		"midi_size":  record.MIDISize,
	})
	return record, nil
}

// Get returns a saved melody record. A non-empty userID only sees its own
// records; anyone else's are reported as history.ErrNotFound.
func (s *MelodyService) Get(ctx context.Context, userID, id string) (*models.GenerationRecord, error) {
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && record.UserID != userID {
		return nil, history.ErrNotFound
	}
	return record, nil
}

// List returns the most recent melodies saved by userID, newest first. An
// empty userID lists every user's melodies.
func (s *MelodyService) List(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error) {
	return s.history.List(ctx, userID, limit)
}

// OpenMIDI returns the stored MIDI file of a saved melody. A missing artifact
// is re-encoded from the recorded canonical description.
func (s *MelodyService) OpenMIDI(ctx context.Context, userID, id string) (*models.GenerationRecord, []byte, error) {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := storage.ReadFile(ctx, s.files, record.ArtifactPath)
	if err == nil {
		return record, data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to read MIDI artifact: %w", err)
	}

	logger.Warn("MIDI artifact missing, re-encoding", logger.Fields{"id": id, "path": record.ArtifactPath})
	c, err := record.CanonicalDescription()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode stored description: %w", err)
	}
	result, err := s.renderCanonical(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return record, result.MIDI, nil
}

// PreviewSaved synthesizes a WAV preview of a saved melody
func (s *MelodyService) PreviewSaved(ctx context.Context, userID, id string) (*PreviewResult, error) {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c, err := record.CanonicalDescription()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored description: %w", err)
	}
	return s.previewCanonical(ctx, c)
}

// Stats returns the render counters since startup
func (s *MelodyService) Stats() map[string]metrics.RenderSnapshot {
	return s.stats.Snapshot()
}

// Ping checks the history backend
func (s *MelodyService) Ping(ctx context.Context) error {
	return s.history.Ping(ctx)
}

func (s *MelodyService) record(ctx context.Context, kind string, duration time.Duration, notes, size int, err error) {
	success := err == nil
	s.cloudwatch.RecordRender(kind, duration, notes, size, success)
	s.sentry.RecordRender(ctx, kind, duration, notes, size, success)
	s.stats.Record(kind, notes, size, success)

	if success {
		logger.LogRender(ctx, kind, duration, notes, size, nil)
		return
	}
	logger.Warn("Render failed", logger.Fields{
		"kind":  kind,
		"notes": notes,
		"error": err.Error(),
	})
}

// Filename derives a download name from a melody title
func Filename(title, ext string) string {
	return slug(title) + ext
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	if s == "" {
		return defaultBaseName
	}
	return s
}
