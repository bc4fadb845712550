package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardclash/combat-server-go/internal/catalog"
	"github.com/cardclash/combat-server-go/internal/combat"
	"github.com/cardclash/combat-server-go/internal/config"
)

type gatewayFixture struct {
	director *combat.Director
	bus      *combat.EventBus
	gateway  *Gateway

	humanID string
	allyID  string
	fightID string
}

func newGatewayFixture(t *testing.T, bootstrap FightBootstrapper) *gatewayFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cat, err := catalog.New(catalog.DefaultSet())
	require.NoError(t, err)

	bus := combat.NewEventBus()
	director := combat.NewDirector(cat, combat.NewRegistry(), bus, combat.Config{Seed: 7}, logger)

	cfg := config.WebSocketConfig{
		Address:      ":0",
		WriteTimeout: time.Second,
		PongTimeout:  time.Minute,
		SendBuffer:   16,
	}

	return &gatewayFixture{
		director: director,
		bus:      bus,
		gateway:  NewGateway(director, bus, bootstrap, cfg, logger),
		humanID:  "player-1",
		allyID:   "creature-1",
	}
}

// startFight puts the fixture's player into a running fight without going
// through the bootstrap path.
func (f *gatewayFixture) startFight(t *testing.T) {
	t.Helper()
	fightID, err := f.director.CreateFight(f.humanID, "Hero", f.allyID, "Bristleback")
	require.NoError(t, err)
	f.fightID = fightID

	deck := repeatCard("strike", 12)
	require.NoError(t, f.director.SetupDeck(f.humanID, deck))
	require.NoError(t, f.director.SetupDeck(f.allyID, repeatCard("mend", 12)))
	require.NoError(t, f.director.Begin(fightID))
}

func repeatCard(cardID string, n int) []string {
	deck := make([]string, n)
	for i := range deck {
		deck[i] = cardID
	}
	return deck
}

func newFakeClient() *Client {
	return &Client{send: make(chan []byte, 16)}
}

// receive pops the next frame queued for the client.
func receive(t *testing.T, client *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-client.send:
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("no message queued for client")
		return ServerMessage{}
	}
}

func TestGateway_JoinRequiresPlayerID(t *testing.T) {
	f := newGatewayFixture(t, nil)
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "join"})

	msg := receive(t, client)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Reason, "player_id")
}

func TestGateway_JoinUnknownPlayerRejected(t *testing.T) {
	f := newGatewayFixture(t, nil)
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "join", PlayerID: "ghost"})

	msg := receive(t, client)
	assert.Equal(t, "rejected", msg.Type)
}

func TestGateway_JoinDeliversSnapshot(t *testing.T) {
	f := newGatewayFixture(t, nil)
	f.startFight(t)
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "join", PlayerID: f.humanID})

	msg := receive(t, client)
	require.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.View)
	assert.Equal(t, f.fightID, msg.View.FightID)
	assert.Equal(t, f.humanID, msg.View.Human.ID)
	assert.Equal(t, f.humanID, client.playerID)
}

func TestGateway_UnknownMessageType(t *testing.T) {
	f := newGatewayFixture(t, nil)
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "dance"})

	msg := receive(t, client)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Reason, "dance")
}

func TestGateway_PlayCardRejectionReachesSenderOnly(t *testing.T) {
	f := newGatewayFixture(t, nil)
	f.startFight(t)
	client := newFakeClient()
	client.playerID = f.allyID

	// Command under the ally's name during the human phase.
	f.gateway.handleMessage(client, ClientMessage{Type: "play_card", PlayerID: f.allyID, CardID: "mend"})

	msg := receive(t, client)
	assert.Equal(t, "rejected", msg.Type)
	assert.Equal(t, string(combat.RejectNotYourTurn), msg.Reason)
}

func TestGateway_PlayCardSuccessSendsNoDirectReply(t *testing.T) {
	f := newGatewayFixture(t, nil)
	f.startFight(t)
	client := newFakeClient()
	client.playerID = f.humanID

	f.gateway.handleMessage(client, ClientMessage{Type: "play_card", PlayerID: f.humanID, CardID: "strike"})

	// Success reaches everyone through bus events, not a per-client reply.
	assert.Empty(t, client.send)
}

func TestGateway_EndTurnAndConcede(t *testing.T) {
	f := newGatewayFixture(t, nil)
	f.startFight(t)
	client := newFakeClient()
	client.playerID = f.humanID

	f.gateway.handleMessage(client, ClientMessage{Type: "end_turn", PlayerID: f.humanID})
	assert.Empty(t, client.send)

	f.gateway.handleMessage(client, ClientMessage{Type: "concede", PlayerID: f.humanID})
	assert.Empty(t, client.send)

	f.gateway.handleMessage(client, ClientMessage{Type: "concede", PlayerID: f.humanID})
	msg := receive(t, client)
	assert.Equal(t, "rejected", msg.Type)
	assert.Equal(t, string(combat.RejectFightConcluded), msg.Reason)
}

func TestGateway_StartFightWithoutBootstrap(t *testing.T) {
	f := newGatewayFixture(t, nil)
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "start_fight", PlayerID: "player-1"})

	msg := receive(t, client)
	assert.Equal(t, "error", msg.Type)
}

type fakeBootstrap struct {
	director *combat.Director
}

func (b *fakeBootstrap) StartFight(_ context.Context, playerID string) (string, error) {
	fightID, err := b.director.CreateFight(playerID, "Hero", playerID+"-ally", "Bristleback")
	if err != nil {
		return "", err
	}
	if err := b.director.SetupDeck(playerID, repeatCard("strike", 10)); err != nil {
		return "", err
	}
	if err := b.director.SetupDeck(playerID+"-ally", repeatCard("mend", 10)); err != nil {
		return "", err
	}
	if err := b.director.Begin(fightID); err != nil {
		return "", err
	}
	return fightID, nil
}

func TestGateway_StartFightDeliversSnapshot(t *testing.T) {
	bootstrap := &fakeBootstrap{}
	f := newGatewayFixture(t, bootstrap)
	bootstrap.director = f.director
	client := newFakeClient()

	f.gateway.handleMessage(client, ClientMessage{Type: "start_fight", PlayerID: "player-9"})

	msg := receive(t, client)
	require.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.View)
	assert.Equal(t, "player-9", msg.View.Human.ID)
	assert.Equal(t, "AWAITING_HUMAN_TURN", msg.View.Phase)
}

func TestGateway_BusEventsEnqueueForBroadcast(t *testing.T) {
	f := newGatewayFixture(t, nil)

	f.bus.Publish(combat.NewEvent(combat.EventCardPlayed, "f1"))

	select {
	case data := <-f.gateway.broadcast:
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "event", msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, combat.EventCardPlayed, msg.Event.Type)
	default:
		t.Fatal("event not queued for broadcast")
	}
}

func TestGateway_FullClientBufferDropsInsteadOfBlocking(t *testing.T) {
	f := newGatewayFixture(t, nil)
	client := &Client{send: make(chan []byte, 1)}

	f.gateway.sendTo(client, ServerMessage{Type: "error", Reason: "first"})
	f.gateway.sendTo(client, ServerMessage{Type: "error", Reason: "second"})

	msg := receive(t, client)
	assert.Equal(t, "first", msg.Reason)
	assert.Empty(t, client.send)
}

func TestGateway_DropAfterShutdownDoesNotBlock(t *testing.T) {
	f := newGatewayFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		f.gateway.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// A read pump finishing after the hub exited must not hang on handback.
	released := make(chan struct{})
	go func() {
		f.gateway.drop(&Client{send: make(chan []byte, 1)})
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("drop blocked after hub shutdown")
	}
}

func TestClientMessage_Decoding(t *testing.T) {
	var msg ClientMessage
	payload := `{"type": "play_card", "player_id": "player-1", "card_id": "strike"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	assert.Equal(t, "play_card", msg.Type)
	assert.Equal(t, "player-1", msg.PlayerID)
	assert.Equal(t, "strike", msg.CardID)
}
