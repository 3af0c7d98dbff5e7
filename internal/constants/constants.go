// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Session constants
const (
	// StopCommand ends the interactive session when entered instead of a path
	StopCommand = "Stop"

	// UnknownFacePrompt is shown when a face does not match any identity
	UnknownFacePrompt = "Couldn't recognize this person, give me their name"
)

// Corpus constants
const (
	// JPEGQuality is used for images written back into the corpus
	JPEGQuality = 95
)

// HTTP constants
const (
	// MaxUploadSize is the maximum image body size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// ShutdownTimeout bounds the graceful shutdown of the HTTP server
	ShutdownTimeout = 30 * time.Second
)
