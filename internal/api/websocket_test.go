package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/hub"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/notify"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()

	h := hub.New(logger.NewNop())
	ws := NewWSHandler(h, nil, logger.NewNop())

	router := gin.New()
	router.GET("/ws", ws.ServeWS)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, h
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForCount(t *testing.T, h *hub.Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub count: got %d, want %d", h.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWS_RegistersSubscriber(t *testing.T) {
	srv, h := newWSTestServer(t)

	conn := dialWS(t, srv)
	waitForCount(t, h, 1)

	conn.Close()
	waitForCount(t, h, 0)
}

func TestServeWS_PingPongStaysOnTextChannel(t *testing.T) {
	srv, _ := newWSTestServer(t)

	conn := dialWS(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Errorf("heartbeat must be a text frame, got type %d", messageType)
	}
	if string(data) != "pong" {
		t.Errorf("expected pong, got %q", data)
	}
}

func TestServeWS_BroadcastReachesSubscriberAsBinary(t *testing.T) {
	srv, h := newWSTestServer(t)

	conn := dialWS(t, srv)
	waitForCount(t, h, 1)

	opp := domain.Opportunity{
		ID:          uuid.New(),
		Title:       "Office lease negotiation",
		Description: "Client needs a new lease",
		Type:        domain.TypeRealEstate,
		Confidence:  85,
		Status:      domain.StatusNew,
	}
	payload := notify.Encode(opp, "Acme Corp", time.Now())

	h.Broadcast(payload)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Fatalf("notification must be a binary frame, got type %d", messageType)
	}

	decoded, err := notify.Decode(data)
	if err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if decoded.OpportunityID != opp.ID.String() {
		t.Errorf("opportunity id: got %q, want %q", decoded.OpportunityID, opp.ID.String())
	}
	if decoded.TypeString() != "REAL_ESTATE" {
		t.Errorf("type: got %q", decoded.TypeString())
	}
}
