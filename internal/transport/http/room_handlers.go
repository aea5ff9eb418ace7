package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docrelay/internal/core"
	"github.com/vovakirdan/docrelay/internal/journal"
	"github.com/vovakirdan/docrelay/internal/proto"
)

const maxActivityLimit = 500

// RoomHandlers provides read-only HTTP handlers for live rooms.
type RoomHandlers struct {
	hub      *core.Hub
	activity journal.Reader
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance. activity may be nil
// when the journal is disabled.
func NewRoomHandlers(hub *core.Hub, activity journal.Reader, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:      hub,
		activity: activity,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomResponse represents a live room in API responses.
type RoomResponse struct {
	DocID       string       `json:"doc_id"`
	Connections int          `json:"connections"`
	Presence    []proto.User `json:"presence"`
}

// RoomsResponse is the body of GET /api/rooms.
type RoomsResponse struct {
	Connections int            `json:"connections"`
	Rooms       []RoomResponse `json:"rooms"`
}

// ActivityResponse represents one journal entry.
type ActivityResponse struct {
	ID     int64  `json:"id"`
	Kind   string `json:"kind"`
	ConnID string `json:"conn_id"`
	UID    string `json:"uid"`
	At     string `json:"at"`
}

// ListRooms returns every live room with its presence roster.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	stats := h.hub.Stats()
	snapshot := h.hub.Rooms()

	rooms := make([]RoomResponse, 0, len(snapshot))
	for _, room := range snapshot {
		users := make([]proto.User, 0, len(room.Presence))
		for _, u := range room.Presence {
			users = append(users, proto.User{UID: u.UID, Email: u.Email})
		}
		rooms = append(rooms, RoomResponse{
			DocID:       room.DocID,
			Connections: room.Connections,
			Presence:    users,
		})
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, RoomsResponse{Connections: stats.Connections, Rooms: rooms})
}

// ListActivity returns recent membership transitions for a document.
// GET /api/rooms/:docId/activity?limit=N
func (h *RoomHandlers) ListActivity(c *gin.Context) {
	if h.activity == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "activity journal disabled"})
		return
	}

	docID := c.Param("docId")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxActivityLimit)
	}

	entries, err := h.activity.Recent(c.Request.Context(), docID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", docID).Msg("failed to list activity")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, ActivityResponse{
			ID:     e.ID,
			Kind:   string(e.Kind),
			ConnID: e.ConnID,
			UID:    e.UID,
			At:     e.At.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}
