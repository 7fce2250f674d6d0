package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/ai"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/auth"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/config"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/otc"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/reading"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/rest"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/service"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/shard"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store/firestore"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store/postgres"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store/sqlite"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/token"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const shardFetchTimeout = 15 * time.Second

func run(ctx context.Context) error {
	cfg := config.FromEnv()
	setupLogger(cfg.LogLevel)

	slog.Info("starting linguist diary")

	local, err := sqlite.Open(cfg.Local.Path)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer local.Close()

	var apiOpts []rest.APIOption
	apiOpts = append(apiOpts, rest.WithReadyCheck("local", local.Ping))

	// a remote store that cannot be configured leaves every session local-only
	remote := openRemote(ctx, cfg.Remote)
	if remote != nil {
		defer remote.Close()
		apiOpts = append(apiOpts, rest.WithReadyCheck("remote", remote.Ping))
	}

	issuer := token.NewIssuer(token.IssuerConfig{
		Secret: []byte(cfg.Auth.Secret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})

	sessOpts := []service.SessionsOption{
		service.WithRegistry(service.NewRegistry(remote, local, cfg.Diary.PracticeFetchLimit)),
		service.WithLocalStore(local),
		service.WithIssuer(issuer),
		service.WithSuccessRedirect(cfg.Auth.SuccessRedirect),
	}
	if cfg.Auth.AvatarTemplate != "" {
		sessOpts = append(sessOpts, service.WithAvatarTemplate(cfg.Auth.AvatarTemplate))
	}

	rdb := openRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()

		sessOpts = append(sessOpts,
			service.WithRevoker(token.NewRedisRevoker(rdb)),
			service.WithOTC(otc.NewRedis(rdb, cfg.Auth.OTCTTL)),
		)
		apiOpts = append(apiOpts,
			rest.WithShards(shard.NewRedisStore(rdb, cfg.Redis.ShardTTL), shard.NewFetcher(shardFetchTimeout)),
			rest.WithReadyCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		)
	} else {
		revoker, err := token.NewMemoryRevoker(cfg.Diary.RevokedTokensMax)
		if err != nil {
			return fmt.Errorf("failed to create token revoker: %w", err)
		}

		sessOpts = append(sessOpts, service.WithRevoker(revoker))
	}

	authenticator := auth.NewAuthenticator()
	if err := registerProviders(ctx, authenticator, cfg); err != nil {
		slog.Warn("federated sign-in disabled", "error", err)
	}
	sessOpts = append(sessOpts, service.WithAuthenticator(authenticator))

	annotator, err := reading.New()
	if err != nil {
		return fmt.Errorf("failed to create reading annotator: %w", err)
	}

	diary := newDiary(cfg, annotator)
	defer diary.Close()

	api := rest.NewAPI(rest.Config{
		ClientCookie:  cfg.HTTP.ClientCookie,
		SecureCookies: cfg.HTTP.SecureCookies,
	}, service.NewSessions(sessOpts...), diary, issuer, apiOpts...)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      api,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

// openRemote returns nil when no remote backend is usable.
func openRemote(ctx context.Context, cfg config.Remote) store.Remote {
	if !cfg.Enabled() {
		slog.Info("remote store disabled, running local-only")
		return nil
	}
	if cerr := cfg.Validate(); cerr != nil {
		slog.Warn("remote store misconfigured, running local-only", "error", cerr)
		return nil
	}

	var (
		remote store.Remote
		err    error
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		remote, err = postgres.Open(ctx, postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DB:       cfg.Postgres.Name,
			SSLMode:  cfg.Postgres.SSLMode,
		})
	case config.BackendFirestore:
		remote, err = firestore.Open(ctx, firestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
	}
	if err != nil {
		slog.Warn("remote store unavailable, running local-only", "backend", cfg.Backend, "error", err)
		return nil
	}

	slog.Info("remote store connected", "backend", cfg.Backend)
	return remote
}

// openRedis returns nil when redis is not configured or unreachable.
func openRedis(ctx context.Context, cfg config.Config) *redis.Client {
	addr := cfg.Redis.Addr()
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, sign-in codes and shards disabled", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func registerProviders(ctx context.Context, a *auth.Authenticator, cfg config.Config) error {
	if !cfg.Google.Enabled() {
		return errors.New("google client is not configured")
	}

	google, err := auth.NewGoogle(ctx, auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create google provider: %w", err)
	}

	return a.Use("google", google)
}

func newDiary(cfg config.Config, annotator *reading.Annotator) *service.Diary {
	dcfg := service.DiaryConfig{
		MinUnits:       cfg.Diary.MinUnits,
		HistorySize:    cfg.Diary.HistorySize,
		MusesCacheKeys: cfg.Diary.MusesCacheKeys,
		MusesCacheCost: cfg.Diary.MusesCacheCost,
	}

	client, err := ai.New(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		SpeechModel: cfg.AI.SpeechModel,
		Voice:       cfg.AI.Voice,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		slog.Warn("ai features disabled", "error", err)
		return service.NewDiary(nil, annotator, dcfg)
	}
	return service.NewDiary(client, annotator, dcfg)
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("linguist diary terminated with error", "error", err)
		os.Exit(1)
	}
}
