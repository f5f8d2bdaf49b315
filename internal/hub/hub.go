package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"stopdesk/internal/domain"
)

// AllCompanies subscribes a client to every visit.
const AllCompanies = "*"

type Client struct {
	ID        string
	Send      chan []byte
	companies map[string]struct{}
	mu        sync.RWMutex
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		ID:        id,
		Send:      make(chan []byte, bufferSize),
		companies: make(map[string]struct{}),
	}
}

func (c *Client) HasCompany(company string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.companies[CompanyKey(company)]
	return ok
}

func (c *Client) AddCompanies(companies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, co := range companies {
		c.companies[CompanyKey(co)] = struct{}{}
	}
}

func (c *Client) RemoveCompanies(companies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, co := range companies {
		delete(c.companies, CompanyKey(co))
	}
}

func (c *Client) GetCompanies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.companies))
	for co := range c.companies {
		out = append(out, co)
	}
	return out
}

// CompanyKey is the subscription key for a company name.
func CompanyKey(company string) string {
	k := strings.ToLower(strings.TrimSpace(company))
	if k == "" {
		return "default"
	}
	return k
}

type Hub struct {
	mu             sync.RWMutex
	clients        map[*Client]struct{}
	companyClients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.VisitEvent

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		companyClients: make(map[string]map[*Client]struct{}),
		register:       make(chan *Client, 16),
		unregister:     make(chan *Client, 16),
		broadcast:      make(chan domain.VisitEvent, 256),
		logger:         logger.With("component", "hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.ID, "total", h.ClientCount())

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.broadcast:
			h.fanout(ev)
		}
	}
}

func (h *Hub) Subscribe(client *Client, companies []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.AddCompanies(companies)

	for _, co := range companies {
		k := CompanyKey(co)
		if h.companyClients[k] == nil {
			h.companyClients[k] = make(map[*Client]struct{})
		}
		h.companyClients[k][client] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(client *Client, companies []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.RemoveCompanies(companies)

	for _, co := range companies {
		h.dropSubscription(CompanyKey(co), client)
	}
}

// Broadcast queues a visit for delivery. It never blocks; events are dropped
// when the queue is full.
func (h *Hub) Broadcast(ev domain.VisitEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("broadcast channel full, dropping visit", "company", ev.Company, "url_code", ev.URLCode)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type VisitMessage struct {
	Type    string            `json:"type"`
	Payload domain.VisitEvent `json:"payload"`
}

func (h *Hub) fanout(ev domain.VisitEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Client]struct{})
	for client := range h.companyClients[CompanyKey(ev.Company)] {
		targets[client] = struct{}{}
	}
	for client := range h.companyClients[AllCompanies] {
		targets[client] = struct{}{}
	}
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(VisitMessage{Type: "visit", Payload: ev})
	if err != nil {
		return
	}

	for client := range targets {
		select {
		case client.Send <- data:
		default:
			h.logger.Debug("client send buffer full", "client_id", client.ID)
		}
	}
}

func (h *Hub) dropSubscription(key string, client *Client) {
	if h.companyClients[key] != nil {
		delete(h.companyClients[key], client)
		if len(h.companyClients[key]) == 0 {
			delete(h.companyClients, key)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, co := range client.GetCompanies() {
		h.dropSubscription(co, client)
	}

	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", "client_id", client.ID, "total", len(h.clients))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.companyClients = make(map[string]map[*Client]struct{})
}
