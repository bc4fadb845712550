package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardclash/combat-server-go/internal/combat"
	"github.com/cardclash/combat-server-go/internal/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the edge proxy.
		return true
	},
}

// ClientMessage is an inbound command from a remote client. Clients are
// untrusted: the gateway only forwards, the director re-validates.
type ClientMessage struct {
	Type     string `json:"type"` // join | start_fight | play_card | end_turn | concede
	PlayerID string `json:"player_id"`
	CardID   string `json:"card_id,omitempty"`
}

// ServerMessage is an outbound frame: either a combat event, a fight
// snapshot, or a rejection addressed to one client.
type ServerMessage struct {
	Type   string            `json:"type"` // event | snapshot | rejected | error
	Event  *combat.Event     `json:"event,omitempty"`
	View   *combat.FightView `json:"view,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// Client is one connected websocket peer.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
}

// FightBootstrapper starts a fight for a player: the lobby-side collaborator
// that pairs the player with an ally creature and seeds both decks from the
// persistent collections.
type FightBootstrapper interface {
	StartFight(ctx context.Context, playerID string) (string, error)
}

// Gateway bridges the combat engine and remote clients: inbound JSON
// commands go to the director, bus events fan out to every connected
// client.
type Gateway struct {
	director  *combat.Director
	bus       *combat.EventBus
	bootstrap FightBootstrapper
	logger    *zap.Logger
	cfg       config.WebSocketConfig

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{} // closed when the hub loop exits
}

// NewGateway creates a gateway and subscribes it to the event bus. The bus
// listener only enqueues; it never blocks game logic and never touches live
// fight state.
func NewGateway(director *combat.Director, bus *combat.EventBus, bootstrap FightBootstrapper, cfg config.WebSocketConfig, logger *zap.Logger) *Gateway {
	g := &Gateway{
		director:   director,
		bus:        bus,
		bootstrap:  bootstrap,
		logger:     logger,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}

	bus.Subscribe(func(event combat.Event) {
		data, err := json.Marshal(ServerMessage{Type: "event", Event: &event})
		if err != nil {
			logger.Error("marshaling event", zap.Error(err))
			return
		}
		select {
		case g.broadcast <- data:
		default:
			logger.Warn("broadcast queue full, dropping event",
				zap.String("event_type", string(event.Type)),
			)
		}
	})

	return g
}

// Run drives the hub loop until the context is canceled.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(g.done)
			for client := range g.clients {
				close(client.send)
				client.conn.Close()
			}
			return

		case client := <-g.register:
			g.clients[client] = true
			g.logger.Info("client connected", zap.String("player_id", client.playerID))

		case client := <-g.unregister:
			if _, ok := g.clients[client]; ok {
				delete(g.clients, client)
				close(client.send)
				if client.playerID != "" {
					// Disconnect is a forced concession for any fight the
					// player is still in.
					if err := g.director.Abandon(client.playerID); err != nil {
						var rejection *combat.Rejection
						if !errors.As(err, &rejection) {
							g.logger.Error("abandon on disconnect", zap.Error(err))
						}
					}
				}
				g.logger.Info("client disconnected", zap.String("player_id", client.playerID))
			}

		case message := <-g.broadcast:
			for client := range g.clients {
				select {
				case client.send <- message:
				default:
					delete(g.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Start registers the /ws handler and serves until the listener fails.
func (g *Gateway) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)

	server := &http.Server{
		Addr:    g.cfg.Address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	g.logger.Info("starting WebSocket server", zap.String("address", g.cfg.Address))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, g.cfg.SendBuffer),
	}
	select {
	case g.register <- client:
	case <-g.done:
		conn.Close()
		return
	}

	go g.writePump(client)
	go g.readPump(client)
}

// drop hands a client back to the hub. Once the hub has exited the send
// would block forever, so the done channel wins instead.
func (g *Gateway) drop(client *Client) {
	select {
	case g.unregister <- client:
	case <-g.done:
	}
}

func (g *Gateway) readPump(client *Client) {
	defer func() {
		g.drop(client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.sendTo(client, ServerMessage{Type: "error", Reason: "malformed message"})
			continue
		}
		g.handleMessage(client, msg)
	}
}

func (g *Gateway) writePump(client *Client) {
	ticker := time.NewTicker(g.cfg.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one client command to the director. Rejections
// flow back to the sender only; events reach everyone through the bus.
func (g *Gateway) handleMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "join":
		if msg.PlayerID == "" {
			g.sendTo(client, ServerMessage{Type: "error", Reason: "join requires player_id"})
			return
		}
		client.playerID = msg.PlayerID
		view, err := g.director.SnapshotFor(msg.PlayerID)
		if err != nil {
			g.sendTo(client, ServerMessage{Type: "rejected", Reason: err.Error()})
			return
		}
		g.sendTo(client, ServerMessage{Type: "snapshot", View: &view})

	case "start_fight":
		if g.bootstrap == nil {
			g.sendTo(client, ServerMessage{Type: "error", Reason: "fight bootstrap not available"})
			return
		}
		if msg.PlayerID == "" {
			g.sendTo(client, ServerMessage{Type: "error", Reason: "start_fight requires player_id"})
			return
		}
		client.playerID = msg.PlayerID
		fightID, err := g.bootstrap.StartFight(context.Background(), msg.PlayerID)
		if err != nil {
			g.sendRejection(client, err)
			return
		}
		view, err := g.director.Snapshot(fightID)
		if err != nil {
			g.sendRejection(client, err)
			return
		}
		g.sendTo(client, ServerMessage{Type: "snapshot", View: &view})

	case "play_card":
		if _, err := g.director.PlayCard(msg.PlayerID, msg.CardID); err != nil {
			g.sendRejection(client, err)
		}

	case "end_turn":
		if err := g.director.EndTurn(msg.PlayerID); err != nil {
			g.sendRejection(client, err)
		}

	case "concede":
		if err := g.director.Concede(msg.PlayerID); err != nil {
			g.sendRejection(client, err)
		}

	default:
		g.sendTo(client, ServerMessage{Type: "error", Reason: "unknown message type " + msg.Type})
	}
}

func (g *Gateway) sendRejection(client *Client, err error) {
	var rejection *combat.Rejection
	if errors.As(err, &rejection) {
		g.sendTo(client, ServerMessage{Type: "rejected", Reason: string(rejection.Reason)})
		return
	}
	// Integrity failures already concluded the fight and were broadcast;
	// tell this client something went wrong without internals.
	g.sendTo(client, ServerMessage{Type: "error", Reason: "internal error"})
}

func (g *Gateway) sendTo(client *Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("marshaling server message", zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	default:
		g.logger.Warn("client send buffer full, dropping message",
			zap.String("player_id", client.playerID),
		)
	}
}
