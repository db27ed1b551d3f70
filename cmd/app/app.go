package app

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/database"
	"edusocial/internal/logger"
	"edusocial/internal/middleware"
	"edusocial/internal/realtime"
	"edusocial/internal/realtime/socketio"
	"edusocial/internal/realtime/stomp"
	"edusocial/internal/repository"
	"edusocial/internal/service"
	"edusocial/internal/session"
	"edusocial/internal/storage"
)

// App is everything a front end needs, wired once.
type App struct {
	Cfg       *config.Config
	Log       logger.Logger
	DB        *database.DB
	Repo      *repository.Repository
	Session   *session.Session
	API       *api.Client
	Transport realtime.Transport
	Services  *service.Service
}

// New wires config -> logger -> cache db -> repositories -> session ->
// REST client -> realtime transport -> services. onUnauthorized runs after
// the server rejected the session token.
func New(ctx context.Context, cfg *config.Config, notify service.Notifier, onUnauthorized func()) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	log := logger.New(cfg)

	db, err := database.ConnectDB(cfg.Cache, log)
	if err != nil {
		return nil, errors.Wrap(err, "opening local cache")
	}
	repo := repository.NewRepository(db.DB)

	sess := session.New(session.NewFileStore(cfg.Session.Path, cfg.Session.Passphrase))
	if err := sess.Restore(); err != nil {
		log.Warn("restoring session, starting logged out", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.API.RequestTimeout,
		Transport: middleware.Chain(nil,
			middleware.RequestID(),
			middleware.Logging(log),
			middleware.Auth(sess),
			middleware.Unauthorized(sess, log, onUnauthorized),
		),
	}
	client := api.New(cfg.API.BaseURL, httpClient, log)

	transport := NewTransport(cfg, log)

	var store storage.Storage
	if cfg.MinIO.Enabled {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			log.Warn("media storage unavailable, file messages disabled", err)
		} else {
			store = minioClient
		}
	}

	services := service.NewService(service.Deps{
		API:       client,
		Repo:      repo,
		Session:   sess,
		Transport: transport,
		Storage:   store,
		Notifier:  notify,
		Config:    cfg,
		Log:       log,
	})

	return &App{
		Cfg:       cfg,
		Log:       log,
		DB:        db,
		Repo:      repo,
		Session:   sess,
		API:       client,
		Transport: transport,
		Services:  services,
	}, nil
}

// NewTransport picks the realtime client named by the config.
func NewTransport(cfg *config.Config, log logger.Logger) realtime.Transport {
	opts := realtime.OptionsFrom(cfg.Realtime, log)
	if cfg.Realtime.Transport == config.TransportSocketIO {
		return socketio.New(opts)
	}
	return stomp.New(opts)
}

// Close disconnects the transport and closes the cache.
func (a *App) Close() error {
	if a.Transport != nil {
		_ = a.Transport.Disconnect()
	}
	if rl, ok := a.Log.(*logger.RollbarLogger); ok {
		rl.Close()
	}
	return a.DB.CloseDB()
}
