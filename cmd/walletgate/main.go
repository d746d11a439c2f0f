package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	slogctx "github.com/veqryn/slog-context"

	"github.com/veridian-labs/walletgate/adapters/events"
	"github.com/veridian-labs/walletgate/adapters/store"
	"github.com/veridian-labs/walletgate/adapters/tokenizer"
	"github.com/veridian-labs/walletgate/adapters/userdb"
	"github.com/veridian-labs/walletgate/adapters/verifier"
	"github.com/veridian-labs/walletgate/config"
	"github.com/veridian-labs/walletgate/ports"
	"github.com/veridian-labs/walletgate/service"
	"github.com/veridian-labs/walletgate/transport/http"
)

func main() {
	handler := slogctx.NewHandler(slog.NewJSONHandler(os.Stdout, nil), nil)
	slog.SetDefault(slog.New(handler))

	if err := run(); err != nil {
		slog.Error("walletgate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	signKey, err := loadSigningKey(cfg.SigningKeyPath)
	if err != nil {
		return err
	}

	db, err := userdb.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionStore, publisher, err := buildBackends(cfg)
	if err != nil {
		return err
	}

	loginService := service.NewLoginService(
		sessionStore,
		verifier.NewHTTPVerifier(cfg.VerifierURL),
		tokenizer.NewJWTTokenizer(signKey),
		userdb.NewUserRepository(db),
		userdb.NewSessionRepository(db),
		events.NewWatermillPublisher(publisher),
		service.Config{
			ChallengeTTL:      cfg.ChallengeTTL,
			SessionTTL:        cfg.SessionTTL,
			Retention:         cfg.Retention,
			CallbackURL:       cfg.CallbackURL,
			CredDefID:         cfg.CredDefID,
			VerifierEndpoint:  cfg.VerifierEndpoint,
			ChallengeEncoding: service.ChallengeEncoding(cfg.ChallengeEncoding),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go loginService.RunSweeper(ctx, cfg.SweepInterval)

	router := http.SetupRouter(loginService)

	slog.Info("walletgate listening", "port", cfg.Port)
	return router.Run(":" + cfg.Port)
}

func buildBackends(cfg *config.Config) (ports.SessionStore, message.Publisher, error) {
	logger := watermill.NewSlogLogger(slog.Default())

	if cfg.RedisURL == "" {
		return store.NewMemoryStore(), gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	return store.NewRedisStore(redisClient), publisher, nil
}

func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		// Ephemeral key: issued tokens do not survive a restart
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		return key, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in signing key file %s", path)
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return key, nil
}
