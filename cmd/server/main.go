package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardclash/combat-server-go/internal/catalog"
	"github.com/cardclash/combat-server-go/internal/combat"
	"github.com/cardclash/combat-server-go/internal/config"
	"github.com/cardclash/combat-server-go/internal/repository"
	"github.com/cardclash/combat-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting combat server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Card catalog: configured card set file, or the built-in starter set.
	var cat *catalog.Catalog
	if cfg.Catalog.CardSetPath != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.CardSetPath)
		if err != nil {
			logger.Fatal("failed to load card set", zap.Error(err))
		}
		logger.Info("card set loaded",
			zap.String("path", cfg.Catalog.CardSetPath),
			zap.Int("cards", cat.Size()),
		)
	} else {
		cat, err = catalog.New(catalog.DefaultSet())
		if err != nil {
			logger.Fatal("failed to build default card set", zap.Error(err))
		}
		logger.Info("using built-in card set", zap.Int("cards", cat.Size()))
	}

	// Persistence is optional: without a database URL, decks fall back to
	// the default set and results are not recorded.
	var collections *repository.CollectionRepository
	if cfg.Database.URL != "" {
		db, dbErr := repository.NewDB(ctx, cfg.Database, logger)
		if dbErr != nil {
			logger.Fatal("failed to connect to database", zap.Error(dbErr))
		}
		defer db.Close()
		collections = repository.NewCollectionRepository(db)
		logger.Info("collection repository initialized")
	} else {
		logger.Warn("no database configured; using default decks, results not recorded")
	}

	registry := combat.NewRegistry()
	bus := combat.NewEventBus()
	director := combat.NewDirector(cat, registry, bus, combat.Config{
		MaxHandSize:  cfg.Combat.MaxHandSize,
		DrawPerRound: cfg.Combat.DrawPerRound,
		MaxHealth:    cfg.Combat.MaxHealth,
		MaxEnergy:    cfg.Combat.MaxEnergy,
		Seed:         cfg.Combat.Seed,
	}, logger)
	logger.Info("combat director initialized",
		zap.Int("max_hand_size", cfg.Combat.MaxHandSize),
		zap.Int("draw_per_round", cfg.Combat.DrawPerRound),
	)

	// Post-fight reporting: record the result, then release the fight.
	bus.SubscribeTyped(combat.EventFightConcluded, func(event combat.Event) {
		go finishFight(ctx, director, collections, logger, event)
	})

	bootstrap := &fightBootstrap{
		director:    director,
		catalog:     cat,
		collections: collections,
	}

	gateway := server.NewGateway(director, bus, bootstrap, cfg.Server.WebSocket, logger)
	go gateway.Run(ctx)
	go func() {
		if wsErr := gateway.Start(ctx); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("combat server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	time.Sleep(100 * time.Millisecond)

	logger.Info("combat server stopped")
}

// finishFight records the outcome and drops the concluded fight. Runs on
// its own goroutine so bus listeners never block fight logic.
func finishFight(ctx context.Context, director *combat.Director, collections *repository.CollectionRepository, logger *zap.Logger, event combat.Event) {
	view, err := director.Snapshot(event.FightID)
	if err != nil {
		return
	}
	if collections != nil {
		winnerID, loserID := view.Human.ID, view.Ally.ID
		if event.Winner == combat.SideAlly {
			winnerID, loserID = view.Ally.ID, view.Human.ID
		}
		recordCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := collections.RecordResult(recordCtx, event.FightID, winnerID, loserID, view.Round, view.Failed); err != nil {
			logger.Error("recording fight result", zap.Error(err))
		}
	}
	director.RemoveFight(event.FightID)
}

// fightBootstrap pairs a player with an ally creature and seeds both decks.
// The player's deck comes from their persistent collection when a database
// is configured, otherwise from the built-in set; the ally always plays the
// built-in set.
type fightBootstrap struct {
	director    *combat.Director
	catalog     *catalog.Catalog
	collections *repository.CollectionRepository
}

func (b *fightBootstrap) StartFight(ctx context.Context, playerID string) (string, error) {
	deck := b.defaultDeck()
	if b.collections != nil {
		owned, err := b.collections.LoadOwnedCards(ctx, playerID)
		if err != nil {
			return "", fmt.Errorf("loading collection: %w", err)
		}
		if len(owned) > 0 {
			deck = owned
		}
	}

	allyID := uuid.New().String()
	fightID, err := b.director.CreateFight(playerID, playerID, allyID, "Ally Creature")
	if err != nil {
		return "", err
	}
	if err := b.director.SetupDeck(playerID, deck); err != nil {
		return "", err
	}
	if err := b.director.SetupDeck(allyID, b.defaultDeck()); err != nil {
		return "", err
	}
	if err := b.director.Begin(fightID); err != nil {
		return "", err
	}
	return fightID, nil
}

// defaultDeck doubles the catalog's card list into a 2x playset.
func (b *fightBootstrap) defaultDeck() []string {
	ids := b.catalog.IDs()
	deck := make([]string, 0, len(ids)*2)
	deck = append(deck, ids...)
	deck = append(deck, ids...)
	return deck
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
