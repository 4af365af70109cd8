package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mvp/internal/blobstore"
	"mvp/internal/config"
	"mvp/internal/gateway"
	"mvp/internal/models"
	"mvp/internal/observability"
	"mvp/internal/service"
	"mvp/internal/session"
	"mvp/internal/viewstate"
)

// redisKeyPrefix namespaces session keys in a shared redis.
const redisKeyPrefix = "mvp:session:"

// app wires the client for one command run.
type app struct {
	cfg    *config.Config
	out    io.Writer
	client *gateway.Client

	kv        session.KV
	closeKV   func() error
	session   *session.Store
	persister *session.Persister
	tokens    *session.TokenVault
	loop      *viewstate.MainLoop
	detach    func()

	auth     *service.AuthService
	profiles *service.ProfileService
	feed     *service.FeedService
	events   *service.EventService
	comments *service.CommentService
	likes    *service.LikeService
}

// newApp builds the client. httpClient may be nil.
func newApp(ctx context.Context, cfg *config.Config, httpClient *http.Client, out io.Writer) (*app, error) {
	client, err := gateway.New(gateway.Config{
		BaseURL:    cfg.BackendURL,
		AnonKey:    cfg.BackendAnonKey,
		Timeout:    cfg.BackendTimeout,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	kv, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, client)
	if err != nil {
		_ = closeKV()
		return nil, err
	}

	initial, err := session.Restore(ctx, kv)
	if err != nil {
		_ = closeKV()
		return nil, err
	}
	tokens := session.NewTokenVault(kv)
	token, err := tokens.Load(ctx)
	if err != nil {
		_ = closeKV()
		return nil, fmt.Errorf("load access token: %w", err)
	}
	if token != "" {
		client.SetAccessToken(token)
	}

	sess := session.NewStore(kv, initial)
	persister := session.NewPersister(kv)
	uploader := blobstore.NewUploader(store)

	return &app{
		cfg:       cfg,
		out:       out,
		client:    client,
		kv:        kv,
		closeKV:   closeKV,
		session:   sess,
		persister: persister,
		tokens:    tokens,
		loop:      viewstate.NewMainLoop(),
		detach:    persister.Attach(sess),
		auth:      service.NewAuthService(client, cfg.AuthRedirectURL),
		profiles:  service.NewProfileService(client, uploader),
		feed:      service.NewFeedService(client, uploader),
		events:    service.NewEventService(client, uploader),
		comments:  service.NewCommentService(client),
		likes:     service.NewLikeService(client),
	}, nil
}

// Close waits for outstanding work and releases the session storage.
func (a *app) Close() error {
	a.loop.Wait()
	a.loop.Close()
	a.detach()
	return a.closeKV()
}

func openKV(ctx context.Context, cfg *config.Config) (session.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StateStore {
	case "memory":
		return session.NewMemoryKV(), noop, nil
	case "redis":
		kv, err := session.OpenRedisKV(ctx, cfg.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	default:
		kv, err := session.OpenFileKV(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	}
}

func openStore(ctx context.Context, cfg *config.Config, client *gateway.Client) (blobstore.Store, error) {
	if cfg.StorageBackend != "s3" {
		return client.Storage(), nil
	}
	store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		return nil, err
	}
	observability.GlobalLogger.DebugContext(ctx, "using S3 object storage", slog.String("endpoint", cfg.S3Endpoint))
	return store, nil
}

// settle waits until the work started by a controller call has finished.
func (a *app) settle() {
	a.loop.Wait()
}

// requireSignIn fails commands that need a user.
func (a *app) requireSignIn() error {
	if !a.session.State().LoggedIn {
		return models.NewUnauthorizedError("not signed in, run \"mvp login\" first")
	}
	return nil
}
