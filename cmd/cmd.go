package cmd

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Zahur13/ConnectSphere/internal/config"
	"github.com/Zahur13/ConnectSphere/internal/events"
	"github.com/Zahur13/ConnectSphere/internal/media"
	"github.com/Zahur13/ConnectSphere/internal/services"
	"github.com/Zahur13/ConnectSphere/internal/storage"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// App bundles the wired services over one opened store.
type App struct {
	DB            *store.DB
	Bus           *events.Bus
	Auth          *services.AuthService
	Users         *services.UserService
	Posts         *services.PostService
	Chats         *services.ChatService
	Notifications *services.NotificationService
}

// Close releases the bus and the underlying store.
func (a *App) Close() {
	if err := a.Bus.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close event bus")
	}
	if err := a.DB.KV.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
}

// NewApp opens the configured store and wires all services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	var kv storage.KV
	if cfg.Storage.InMemory {
		kv = storage.NewMemoryStore()
	} else {
		badgerStore, err := storage.NewBadgerStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		kv = badgerStore
	}

	db := store.Open(kv)
	bus := events.NewBus()

	var mediaStore media.Store
	if cfg.Media.Enabled {
		var err error
		mediaStore, err = newMediaStore(ctx, cfg.Media)
		if err != nil {
			kv.Close()
			return nil, err
		}
	}

	auth := services.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTLDays)
	notifications := services.NewNotificationService(db, bus)
	users := services.NewUserService(db, auth, notifications, mediaStore, cfg.Search.MaxResults)
	posts := services.NewPostService(db, auth, notifications, mediaStore)
	chats := services.NewChatService(db, auth, bus, cfg.Presence.TypingTTL(), cfg.Presence.OnlineWindow())

	return &App{
		DB:            db,
		Bus:           bus,
		Auth:          auth,
		Users:         users,
		Posts:         posts,
		Chats:         chats,
		Notifications: notifications,
	}, nil
}

func newMediaStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Backend {
	case "s3":
		return media.NewS3Store(ctx, cfg.Region, cfg.Bucket, cfg.AccessKey, cfg.SecretKey, cfg.Endpoint)
	default:
		return media.NewLocalStore(cfg.LocalDir, cfg.BaseURL)
	}
}

// Run opens the store described by the config file, optionally seeds demo
// data, and reports collection stats.
func Run() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	seed := flag.Bool("seed", false, "seed demo data when the store is empty")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		cfg = config.Default()
	}

	setupLogger(cfg.Log.Level)

	ctx := context.Background()
	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer app.Close()

	log.Info().Str("data_dir", cfg.Storage.DataDir).Bool("in_memory", cfg.Storage.InMemory).Msg("Store opened")

	if *seed || cfg.Seed {
		if err := services.SeedDemoData(app.DB); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
	}

	logStats(app.DB)
}

func logStats(db *store.DB) {
	collections := []interface {
		Name() string
		Count() (int, error)
	}{
		db.Users, db.Posts, db.Comments, db.Chats, db.Messages, db.Notifications,
	}

	event := log.Info()
	for _, c := range collections {
		count, err := c.Count()
		if err != nil {
			log.Error().Err(err).Str("collection", c.Name()).Msg("Failed to count collection")
			return
		}
		event = event.Int(c.Name(), count)
	}
	event.Msg("Collection stats")
}

// setupLogger configures zerolog
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
