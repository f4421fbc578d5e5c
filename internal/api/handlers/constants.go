package handlers

const (
	melodiesPath = "/api/v1/melodies"

	midiContentType = "audio/midi"
	wavContentType  = "audio/wav"
	warningsHeader  = "X-Normalization-Warnings"

	// Request body limit for description payloads
	maxBodyBytes = 1 << 20
)
