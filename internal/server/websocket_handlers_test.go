package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{messageType: messageType, data: data})
	return nil
}

func (m *mockWebSocketConn) responses(t *testing.T) []WebSocketResponse {
	t.Helper()
	out := make([]WebSocketResponse, 0, len(m.sentMessages))
	for _, msg := range m.sentMessages {
		assert.Equal(t, websocket.TextMessage, msg.messageType)
		var resp WebSocketResponse
		require.NoError(t, json.Unmarshal(msg.data, &resp))
		out = append(out, resp)
	}
	return out
}

func sendMessage(t *testing.T, s *Server, msg any) []WebSocketResponse {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	conn := &mockWebSocketConn{}
	s.handleWebSocketMessage(context.Background(), conn, data)
	return conn.responses(t)
}

func TestWebSocket_Ping(t *testing.T) {
	s := newTestServer(t)
	got := sendMessage(t, s, WebSocketRequest{Type: "ping", ID: "p1"})
	require.Len(t, got, 1)
	assert.Equal(t, "pong", got[0].Type)
	assert.Equal(t, "p1", got[0].RequestID)
}

func TestWebSocket_Errors(t *testing.T) {
	s := newTestServer(t)

	conn := &mockWebSocketConn{}
	s.handleWebSocketMessage(context.Background(), conn, []byte("{not json"))
	got := conn.responses(t)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].Type)
	assert.Equal(t, "invalid_request", got[0].ErrorType)

	tests := []struct {
		name string
		req  WebSocketRequest
		msg  string
	}{
		{"unknown type", WebSocketRequest{Type: "ocr"}, "Unsupported request type"},
		{"no image", WebSocketRequest{Type: "process", Operation: "matte"}, "No image data"},
		{"bad operation", WebSocketRequest{Type: "process", Operation: "blur", Image: []byte{1}}, "unknown operation"},
		{"bad option", WebSocketRequest{Type: "process", Operation: "matte", Image: []byte{1}, Options: map[string]any{"tolerance": -1}}, "tolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sendMessage(t, s, tt.req)
			require.Len(t, got, 1)
			assert.Equal(t, "error", got[0].Type)
			assert.Equal(t, "invalid_request", got[0].ErrorType)
			assert.Contains(t, got[0].Error, tt.msg)
			assert.NotEmpty(t, got[0].RequestID)
		})
	}

	got = sendMessage(t, s, WebSocketRequest{Type: "process", ID: "x", Operation: "convert", Image: []byte("garbage")})
	last := got[len(got)-1]
	assert.Equal(t, "processing_error", last.ErrorType)
	assert.Equal(t, "x", last.RequestID)
}

func TestWebSocket_ProcessStreamsProgress(t *testing.T) {
	s := newTestServer(t)
	got := sendMessage(t, s, WebSocketRequest{
		Type:      "process",
		ID:        "job-1",
		Operation: "upscale",
		Name:      "g.png",
		Image:     fixturePNG(t, "gradient"),
		Options:   map[string]any{"factor": 1.5, "sharpen": false},
	})

	// start, one stage, result
	require.Len(t, got, 3)
	assert.Equal(t, "progress", got[0].Type)
	assert.Zero(t, got[0].Progress)
	assert.Equal(t, "progress", got[1].Type)
	assert.Equal(t, "upscale", got[1].Stage)
	assert.InDelta(t, 1.0, got[1].Progress, 1e-9)

	res := got[2]
	assert.Equal(t, "result", res.Type)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, "job-1", res.RequestID)
	require.NotNil(t, res.Result)
	assert.Equal(t, "g-upscaled.png", res.Result.Name)
	assert.Equal(t, 144, res.Result.Width)
	assert.Equal(t, 96, res.Result.Height)
	assert.Equal(t, 144, decodePNG(t, res.Result.Data).Bounds().Dx())
}

func TestWebSocket_CheckOrigin(t *testing.T) {
	open := &Server{corsOrigin: "*"}
	strict := &Server{corsOrigin: "https://app.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, open.checkOrigin(req))
	assert.False(t, strict.checkOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, strict.checkOrigin(req))

	req.Header.Del("Origin")
	assert.True(t, strict.checkOrigin(req))
}

func TestWebSocket_EndToEnd(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	require.NoError(t, conn.WriteJSON(WebSocketRequest{
		Type:      "process",
		ID:        "e2e",
		Operation: "matte",
		Image:     fixturePNG(t, "framed"),
	}))

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg WebSocketResponse
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotEqual(t, "error", msg.Type, msg.Error)
		if msg.Type != "result" {
			continue
		}
		require.NotNil(t, msg.Result)
		require.NotNil(t, msg.Result.Cleared)
		assert.Equal(t, 2304, *msg.Result.Cleared)
		break
	}
}
