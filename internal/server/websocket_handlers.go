package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocketRequest is a client message. Type is "process" or "ping".
type WebSocketRequest struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Name      string         `json:"name,omitempty"`
	Image     []byte         `json:"image,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// WebSocketResponse is a server message. Type is "progress", "result",
// "error" or "pong".
type WebSocketResponse struct {
	Type      string       `json:"type"`
	Status    string       `json:"status,omitempty"` // "processing", "completed", "error"
	RequestID string       `json:"request_id,omitempty"`
	Stage     string       `json:"stage,omitempty"`
	Progress  float64      `json:"progress"`
	Result    *ImageResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorType string       `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// checkOrigin applies the CORS origin to WebSocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.corsOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.corsOrigin
}

// webSocketHandler upgrades the connection and serves process requests until
// the client goes away.
func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// base64 inflates uploads by a third
	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 64*1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes one client message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := req.ID
	if requestID == "" {
		requestID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	switch req.Type {
	case "ping":
		s.sendWebSocketResponse(conn, WebSocketResponse{Type: "pong", RequestID: requestID})
	case "process":
		s.processWebSocketImage(ctx, conn, req, requestID)
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

// processWebSocketImage runs one image and streams stage progress.
func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, req WebSocketRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	op, err := pipeline.ParseOperation(req.Operation)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}
	pl, err := s.pipelineFor(op, mapOptions(req.Options))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}

	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	progress := &wsProgress{server: s, conn: conn, requestID: requestID}
	out, err := s.processBytes(ctx, op, pl, req.Image, progress)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("%s failed: %v", op, err))
		return
	}

	name := req.Name
	if name == "" {
		name = "image"
	}
	result := out.result(outputName(name, op, out.enc))
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "result",
		Status:    "completed",
		RequestID: requestID,
		Progress:  1.0,
		Result:    &result,
	})
}

// wsProgress forwards pipeline stage progress to the client.
type wsProgress struct {
	server    *Server
	conn      WebSocketConnWriter
	requestID string
}

func (p *wsProgress) OnStart(int) {
	p.server.sendWebSocketResponse(p.conn, WebSocketResponse{Type: "progress", Status: "processing", RequestID: p.requestID})
}

func (p *wsProgress) OnProgress(current, total int, label string) {
	var frac float64
	if total > 0 {
		frac = float64(current) / float64(total)
	}
	p.server.sendWebSocketResponse(p.conn, WebSocketResponse{
		Type:      "progress",
		Status:    "processing",
		RequestID: p.requestID,
		Stage:     label,
		Progress:  frac,
	})
}

func (p *wsProgress) OnComplete()           {}
func (p *wsProgress) OnError(string, error) {}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
