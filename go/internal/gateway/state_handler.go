package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/journal"
	"github.com/mcdev12/buffring/go/internal/overlay"
	"github.com/rs/zerolog/log"
)

// StateProvider exposes the registry; buff.Controller satisfies it
type StateProvider interface {
	Snapshot() []buff.View
	SnapshotSeq() ([]buff.View, uint64)
	Get(name string) (buff.View, bool)
	Stats() buff.Stats
}

// SceneProvider exposes the rendered display list; overlay.Scene satisfies it
type SceneProvider interface {
	Elements() []overlay.Element
}

// JournalReader lists recently accepted commands; journal.PostgresJournal satisfies it
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// maxJournalLimit caps ?limit= on GET /api/journal
const maxJournalLimit = 500

// BuffsResponse is the body of GET /api/buffs
type BuffsResponse struct {
	Buffs     []buff.View `json:"buffs"`
	Stats     buff.Stats  `json:"stats"`
	Timestamp time.Time   `json:"timestamp"`
}

// SceneResponse is the body of GET /api/scene
type SceneResponse struct {
	Elements  []overlay.Element `json:"elements"`
	Timestamp time.Time         `json:"timestamp"`
}

// JournalResponse is the body of GET /api/journal
type JournalResponse struct {
	Entries   []journal.Entry `json:"entries"`
	Timestamp time.Time       `json:"timestamp"`
}

// StateHandler handles HTTP requests for buff state
type StateHandler struct {
	stateProvider StateProvider
	scene         SceneProvider
	markup        *overlay.Markup
	journal       JournalReader
}

// NewStateHandler creates a new state handler. scene and markup may be nil
func NewStateHandler(provider StateProvider, scene SceneProvider, markup *overlay.Markup) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		scene:         scene,
		markup:        markup,
	}
}

// HandleListBuffs handles GET /api/buffs
func (h *StateHandler) HandleListBuffs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	views := h.stateProvider.Snapshot()
	if views == nil {
		views = []buff.View{}
	}
	writeJSON(w, http.StatusOK, BuffsResponse{
		Buffs:     views,
		Stats:     h.stateProvider.Stats(),
		Timestamp: time.Now(),
	})
}

// HandleGetBuff handles GET /api/buffs/{name}
func (h *StateHandler) HandleGetBuff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/buffs/"))
	if name == "" {
		h.HandleListBuffs(w, r)
		return
	}

	view, ok := h.stateProvider.Get(name)
	if !ok {
		http.Error(w, "Buff not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleScene handles GET /api/scene
func (h *StateHandler) HandleScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.scene == nil {
		http.Error(w, "Scene not available", http.StatusServiceUnavailable)
		return
	}

	elements := h.scene.Elements()
	if elements == nil {
		elements = []overlay.Element{}
	}
	writeJSON(w, http.StatusOK, SceneResponse{
		Elements:  elements,
		Timestamp: time.Now(),
	})
}

// HandleJournal handles GET /api/journal?limit=N, newest first
func (h *StateHandler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.journal == nil {
		http.Error(w, "Journal not enabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("failed to read command journal")
		http.Error(w, "Failed to read journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, JournalResponse{
		Entries:   entries,
		Timestamp: time.Now(),
	})
}

// HandleOverlayPage handles GET /overlay with a server-rendered snapshot of the tray
func (h *StateHandler) HandleOverlayPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.scene == nil || h.markup == nil {
		http.Error(w, "Overlay not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.markup.Page(w, h.scene.Elements()); err != nil {
		log.Error().Err(err).Msg("failed to render overlay page")
	}
}

// RegisterRoutes registers state routes with the HTTP mux
func (h *StateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/buffs", h.HandleListBuffs)
	mux.HandleFunc("/api/buffs/", h.HandleGetBuff)
	mux.HandleFunc("/api/scene", h.HandleScene)
	mux.HandleFunc("/api/journal", h.HandleJournal)
	mux.HandleFunc("/overlay", h.HandleOverlayPage)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
