package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docstager/backend/internal/ingest"
	"github.com/docstager/backend/internal/logging"
	"github.com/docstager/backend/internal/models"
	"github.com/docstager/backend/internal/state"
)

// WebSocket message types for the staging protocol
const (
	// Client -> Server messages
	MsgTypeDragEnter = "drag:enter"
	MsgTypeDragLeave = "drag:leave"
	MsgTypeDragDrop  = "drag:drop"
	MsgTypePing      = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeAck       = "ack"
	MsgTypeState     = "state"
	MsgTypeReport    = "report"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// Hover states of the drag adapter. Transient, local to one connection,
// never part of the shared state.
type hoverState int

const (
	hoverIdle hoverState = iota
	hoverActive
)

// WSMessage is the envelope for every frame in both directions
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DropPayload carries the candidate batch released over the drop target
type DropPayload struct {
	Files []DropFile `json:"files"`
}

// DropFile is one dropped file: descriptor plus base64 content
type DropFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type,omitempty"`
	Data string `json:"data"` // Base64 encoded content
}

// WSErrorResponse is the error frame payload
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler serves the staging WebSocket: drag events in, state
// snapshots out. Every committed Set is broadcast to all connections so
// each subscribed view re-renders from the same snapshot.
type WebSocketHandler struct {
	pipeline Ingestor
	store    *state.Store
	upgrader websocket.Upgrader
	log      *logging.Logger
}

// NewWebSocketHandler creates a new staging WebSocket handler
func NewWebSocketHandler(pipeline Ingestor, store *state.Store, log *logging.Logger) *WebSocketHandler {
	if log == nil {
		log = logging.NewNop()
	}
	return &WebSocketHandler{
		pipeline: pipeline,
		store:    store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		log: log.Named("ws"),
	}
}

// wsWriteTimeout bounds every frame write. Broadcasts run synchronously
// inside Set, so a stalled client must fail fast instead of blocking
// commits for the whole process.
const wsWriteTimeout = 10 * time.Second

// wsConn serializes writes: broadcasts arrive from whichever goroutine
// committed a Set, replies from the read loop.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteJSON(msg)
}

// HandleWebSocket upgrades the connection and runs the staging protocol
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	conn := &wsConn{ws: ws}
	h.log.Info("client connected")

	// Subscribe before sending the initial snapshot so no Set between the
	// two is lost.
	unsubscribe := h.store.Subscribe(func(s state.AppState) {
		h.sendState(conn, s)
	})
	defer unsubscribe()

	conn.send(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})
	h.sendState(conn, h.store.Get())

	hover := hoverIdle

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("connection error", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeDragEnter:
			hover = hoverActive
			h.sendAck(conn, msg.ID)
		case MsgTypeDragLeave:
			hover = hoverIdle
			h.sendAck(conn, msg.ID)
		case MsgTypeDragDrop:
			if hover != hoverActive {
				h.sendError(conn, "drop without preceding drag:enter", "INVALID_TRANSITION")
				continue
			}
			hover = hoverIdle
			h.handleDrop(conn, msg)
		default:
			h.sendError(conn, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	h.log.Info("client disconnected")
	return nil
}

// handleDrop converts the drop payload into a candidate batch and runs the
// pipeline. The report goes back on the same connection; the state snapshot
// reaches every connection via the subscription.
func (h *WebSocketHandler) handleDrop(conn *wsConn, msg WSMessage) {
	var payload DropPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(conn, "Invalid drop payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	batch := make([]ingest.Candidate, 0, len(payload.Files))
	for _, f := range payload.Files {
		decoded, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			h.sendError(conn, "Invalid base64 data for "+f.Name+": "+err.Error(), "INVALID_DATA")
			return
		}

		size := f.Size
		if size == 0 {
			size = int64(len(decoded))
		}
		batch = append(batch, ingest.Candidate{
			Descriptor: models.RawFileDescriptor{Name: f.Name, Size: size, Type: f.Type},
			Content:    bytes.NewReader(decoded),
		})
	}

	report, err := h.pipeline.AddFiles(ingest.SourceDrop, batch)
	if err != nil {
		h.sendError(conn, "Failed to stage files: "+err.Error(), "STAGE_ERROR")
		return
	}

	conn.send(WSMessage{
		Type:      MsgTypeReport,
		ID:        msg.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(report),
	})
}

// Helper methods

func (h *WebSocketHandler) sendState(conn *wsConn, s state.AppState) {
	err := conn.send(WSMessage{
		Type:      MsgTypeState,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(snapshotOf(s)),
	})
	if err != nil {
		h.log.Warn("state push failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendAck(conn *wsConn, id string) {
	conn.send(WSMessage{Type: MsgTypeAck, ID: id, Timestamp: time.Now().UnixMilli()})
}

func (h *WebSocketHandler) sendError(conn *wsConn, message, code string) {
	conn.send(WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSErrorResponse{Message: message, Code: code}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
