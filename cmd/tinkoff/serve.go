package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff/adapters/events"
	"github.com/mishannn/tinkoff/adapters/store"
	"github.com/mishannn/tinkoff/adapters/tokenizer"
	"github.com/mishannn/tinkoff/internal/config"
	"github.com/mishannn/tinkoff/ports"
	"github.com/mishannn/tinkoff/service"
	transport "github.com/mishannn/tinkoff/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web login demo",
	Long: `Serve the login pages and the JSON API.

Pending confirmations are tracked in Redis and events go to Redis streams when
redis_url is set; otherwise both stay in memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address")
	_ = v.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	privateKey, err := signingKey(cfg.SigningKeyFile, log)
	if err != nil {
		return err
	}

	st, publisher, closeBackends, err := backends(cfg, log)
	if err != nil {
		return err
	}
	defer closeBackends()

	loginService := service.NewLoginService(
		tokenizer.NewJWTTokenizer(privateKey),
		st,
		events.NewWatermillPublisher(publisher),
		log.Named("service"),
		cfg.ClientOptions()...,
	).WithConfirmationTTL(cfg.ConfirmationTTL)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.SetupRouter(loginService, log.Named("http"), transport.Defaults{
		Username: cfg.Username,
		Password: cfg.Password,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// signingKey loads the ES256 key for resume tokens. Without a key file an
// ephemeral key is generated and tokens do not survive a restart.
func signingKey(path string, log *zap.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		log.Warn("no signing key configured, using an ephemeral key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return key, nil
}

func backends(cfg *config.Config, log *zap.Logger) (ports.Store, message.Publisher, func(), error) {
	wmLogger := watermill.NewStdLogger(cfg.LogLevel == "debug", false)

	if cfg.RedisURL == "" {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemoryStore(), pubSub, func() { _ = pubSub.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	log.Info("using redis", zap.String("addr", opts.Addr))

	closeFn := func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
	return store.NewRedisStore(redisClient), publisher, closeFn, nil
}
