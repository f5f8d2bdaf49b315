package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"stopdesk/internal/hub"
)

type WSHandler struct {
	hub            *hub.Hub
	originPatterns []string
	logger         *slog.Logger
}

// NewWSHandler serves the live visit feed. An empty originPatterns accepts
// any origin.
func NewWSHandler(h *hub.Hub, originPatterns []string, logger *slog.Logger) *WSHandler {
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return &WSHandler{hub: h, originPatterns: originPatterns, logger: logger.With("handler", "visits_ws")}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CompaniesPayload is the body of subscribe and unsubscribe messages.
// "*" subscribes to every company.
type CompaniesPayload struct {
	Companies []string `json:"companies"`
}

type SubscribedMessage struct {
	Type    string           `json:"type"`
	Payload CompaniesPayload `json:"payload"`
}

type PongMessage struct {
	Type string `json:"type"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := hub.NewClient(uuid.New().String(), 64)
	h.hub.Register(client)
	ServerStats.IncWSConnections()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	h.readLoop(ctx, conn, client)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	defer func() {
		h.hub.Unregister(client)
		ServerStats.DecWSConnections()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}
		ServerStats.IncWSMessagesIn()

		if msgType != websocket.MessageText {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid message format", "client_id", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			var payload CompaniesPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.Companies) > 0 {
				h.hub.Subscribe(client, payload.Companies)
				h.sendSubscribed(client)
			}

		case "unsubscribe":
			var payload CompaniesPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.Companies) > 0 {
				h.hub.Unsubscribe(client, payload.Companies)
				h.sendSubscribed(client)
			}

		case "ping":
			h.send(client, PongMessage{Type: "pong"})
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// sendSubscribed acknowledges the client's current company set.
func (h *WSHandler) sendSubscribed(client *hub.Client) {
	h.send(client, SubscribedMessage{
		Type:    "subscribed",
		Payload: CompaniesPayload{Companies: client.GetCompanies()},
	})
}

func (h *WSHandler) send(client *hub.Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	select {
	case client.Send <- data:
	default:
		h.logger.Debug("client buffer full, dropping message", "client_id", client.ID)
	}
}
