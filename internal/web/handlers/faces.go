package handlers

import (
	"errors"
	"image"
	"log"
	"net/http"
	"sync"

	"github.com/kozaktomas/face-session/internal/constants"
	"github.com/kozaktomas/face-session/internal/corpus"
	"github.com/kozaktomas/face-session/internal/registry"
	"github.com/kozaktomas/face-session/internal/session"
)

// FacesHandler exposes one session over HTTP. Requests are served one at a
// time because the session is single-threaded.
type FacesHandler struct {
	mu      sync.Mutex
	session *session.Session
}

// NewFacesHandler creates a handler over a started session.
func NewFacesHandler(s *session.Session) *FacesHandler {
	return &FacesHandler{session: s}
}

// IdentitiesResponse lists the registered identities.
type IdentitiesResponse struct {
	Identities   []registry.Identity `json:"identities"`
	HighestLabel int                 `json:"highest_label"`
}

// RecognizeResponse is the result of a recognition.
type RecognizeResponse struct {
	Known bool   `json:"known"`
	Label int    `json:"label"`
	Name  string `json:"name,omitempty"`
}

// LearnResponse describes a learned face.
type LearnResponse struct {
	Name      string `json:"name"`
	Label     int    `json:"label"`
	Created   bool   `json:"created"`
	ImagePath string `json:"image_path"`
}

// readImage decodes the request body as an image.
func readImage(w http.ResponseWriter, r *http.Request) (*image.Gray, bool) {
	body := http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	img, err := corpus.Decode(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "image too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "invalid image")
		return nil, false
	}
	return img, true
}

// respondSessionError maps session errors to HTTP statuses.
func respondSessionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidName):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		respondError(w, http.StatusConflict, "session is not accepting requests")
	default:
		log.Printf("WARNING: %s failed: %v", op, err)
		respondError(w, http.StatusInternalServerError, op+" failed")
	}
}

// Identities handles GET /identities.
func (h *FacesHandler) Identities(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identities := h.session.Identities()
	if identities == nil {
		identities = []registry.Identity{}
	}
	respondJSON(w, http.StatusOK, IdentitiesResponse{
		Identities:   identities,
		HighestLabel: h.session.HighestLabel(),
	})
}

// Recognize handles POST /recognize with an image body.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	img, ok := readImage(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.session.Recognize(img)
	if err != nil {
		respondSessionError(w, "recognition", err)
		return
	}
	respondJSON(w, http.StatusOK, RecognizeResponse{
		Known: result.Known,
		Label: result.Label,
		Name:  result.Name,
	})
}

// Learn handles POST /learn?name= with an image body.
func (h *FacesHandler) Learn(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	img, ok := readImage(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	learned, err := h.session.Learn(img, name)
	if err != nil {
		respondSessionError(w, "learning", err)
		return
	}
	log.Printf("Learned %s (label %d) -> %s", sanitizeForLog(learned.Name), learned.Label, learned.ImagePath)

	status := http.StatusOK
	if learned.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, LearnResponse{
		Name:      learned.Name,
		Label:     learned.Label,
		Created:   learned.Created,
		ImagePath: learned.ImagePath,
	})
}

// Close finalizes the session once no request is running.
func (h *FacesHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.session.Finalize()
}
