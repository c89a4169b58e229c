package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/clients/fpl_client"
	"github.com/mcdev12/fpldraft/go/internal/cache"
	"github.com/mcdev12/fpldraft/go/internal/divisions"
	"github.com/mcdev12/fpldraft/go/internal/draft/archive"
	"github.com/mcdev12/fpldraft/go/internal/draft/coordinator"
	"github.com/mcdev12/fpldraft/go/internal/draft/gateway"
	"github.com/mcdev12/fpldraft/go/internal/draft/outbox"
	"github.com/mcdev12/fpldraft/go/internal/draft/repository"
	"github.com/mcdev12/fpldraft/go/internal/metrics"
	"github.com/mcdev12/fpldraft/go/internal/player"
	"github.com/mcdev12/fpldraft/go/internal/users"
)

type Services struct {
	Divisions   *divisions.App
	Users       *users.App
	Catalog     *player.App
	Store       repository.Repository
	Coordinator *coordinator.Service
	Gateway     *gateway.Service
	Metrics     *metrics.Recorder
	// OutboxListener is set when this process relays the outbox.
	OutboxListener *outbox.Listener
	OutboxHealth   *outbox.RelayHealthChecker

	closers []func()
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// League file → catalog → store → event delivery → coordinator
	s := &Services{Metrics: metrics.NewRecorder()}
	if err := s.setup(ctx, config); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) setup(ctx context.Context, config *Config) error {
	league, err := divisions.LoadFile(config.LeagueFile)
	if err != nil {
		return err
	}
	s.Divisions = league
	s.Users = users.NewApp(league.Users()...)

	catalog, err := setupCatalog(config, league)
	if err != nil {
		return err
	}
	s.Catalog = catalog

	store, publisher, err := s.setupStore(ctx, config)
	if err != nil {
		return err
	}
	if err := league.Initialize(ctx, store, time.Now()); err != nil {
		return err
	}

	gwConfig := gateway.DefaultConfig()
	if config.Events.Mode != "local" {
		js := gateway.DefaultJetStreamConsumerConfig()
		js.URL = config.Events.NATSURL
		js.StreamName = config.Events.Stream
		if config.Events.NodeID != "" {
			js.NodeID = config.Events.NodeID
		}
		gwConfig.JetStreamConfig = &js
	}
	gw, err := gateway.NewService(ctx, gwConfig, s.Metrics, nil)
	if err != nil {
		return err
	}
	s.Gateway = gw

	opts := []coordinator.Option{coordinator.WithRecorder(s.Metrics)}
	switch config.Events.Mode {
	case "local":
		opts = append(opts, coordinator.WithPublisher(gw.Hub()))
	case "nats":
		opts = append(opts, coordinator.WithPublisher(publisher))
	case "outbox":
		// Events are written with the pick and relayed from draft_outbox.
	}

	archiver, err := setupArchiver(ctx, config)
	if err != nil {
		return err
	}
	if archiver != nil {
		opts = append(opts, coordinator.WithArchiver(archiver))
	}

	var readStore repository.Repository = store
	switch config.Cache.Backend {
	case "memory":
		readStore = repository.NewCachedRepository(store, cache.NewMemory(nil), config.Cache.TTL, s.Metrics)
	case "redis":
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:       config.Cache.Redis.Addr,
			Password:   config.Cache.Redis.Password,
			DB:         config.Cache.Redis.DB,
			TLSEnabled: config.Cache.Redis.TLS,
		})
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = rc.Close() })
		readStore = repository.NewCachedRepository(store, rc, config.Cache.TTL, s.Metrics)
	}
	s.Store = readStore

	coord := coordinator.New(readStore, catalog, s.Users, opts...)
	s.Coordinator = coordinator.NewService(coord, nil)

	log.Info().
		Str("storage", config.Storage.Backend).
		Str("cache", config.Cache.Backend).
		Str("events", config.Events.Mode).
		Strs("catalog", config.Catalog.Sources).
		Str("archive", config.Archive.Backend).
		Int("divisions", len(league.Divisions())).
		Msg("services ready")
	return nil
}

// setupStore opens the draft store and, for the nats and outbox modes, the JetStream publisher.
func (s *Services) setupStore(ctx context.Context, config *Config) (repository.Repository, *outbox.JetStreamPublisher, error) {
	var publisher *outbox.JetStreamPublisher
	if config.Events.Mode == "nats" || (config.Events.Mode == "outbox" && config.Events.OutboxRelay) {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = config.Events.NATSURL
		jsCfg.StreamName = config.Events.Stream
		p, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func() { _ = p.Close() })
		publisher = p
	}

	switch config.Storage.Backend {
	case "postgres":
		pool, dbCfg, err := setupPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, pool.Close)

		var pgOpts []repository.PostgresOption
		if config.Events.Mode == "outbox" {
			pgOpts = append(pgOpts, repository.WithOutbox())
		}
		repo := repository.NewPostgresRepository(pool, pgOpts...)
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, err
		}

		if config.Events.Mode == "outbox" && config.Events.OutboxRelay {
			store := outbox.NewPostgresStore(pool)
			relay := outbox.NewRelay(store, publisher, outbox.DefaultRelayConfig(), s.Metrics, nil)
			ltCfg := outbox.DefaultListenerConfig()
			ltCfg.DatabaseURL = dbCfg.DSN()
			listener, err := outbox.NewListener(relay, ltCfg)
			if err != nil {
				return nil, nil, err
			}
			s.OutboxListener = listener
			s.OutboxHealth = outbox.NewRelayHealthChecker(relay, store, outbox.HealthDeps{
				Database: store,
				NATS:     publisher.Conn(),
				Listener: listener,
			}, 2*time.Minute, nil)
		}
		return repo, publisher, nil

	case "firestore":
		client, err := setupFirestore(ctx, config)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		repo, err := repository.NewFirestoreRepository(client)
		if err != nil {
			return nil, nil, err
		}
		return repo, publisher, nil

	default:
		return repository.NewMemoryRepository(), publisher, nil
	}
}

func setupCatalog(config *Config, rules player.RulesLookup) (*player.App, error) {
	var sources []player.Source
	for _, name := range config.Catalog.Sources {
		switch name {
		case "fpl":
			sources = append(sources, player.NewFPLSource(fpl_client.NewFPLClient(config.Catalog.FPLBaseURL)))
		case "file":
			sources = append(sources, player.NewFileSource(config.Catalog.File))
		default:
			return nil, fmt.Errorf("unknown catalog source %q", name)
		}
	}
	return player.NewApp(rules, nil, config.Catalog.TTL, sources...), nil
}

func setupArchiver(ctx context.Context, config *Config) (*archive.Archiver, error) {
	switch config.Archive.Backend {
	case "file":
		w, err := archive.NewFileWriter(config.Archive.Dir)
		if err != nil {
			return nil, err
		}
		return archive.NewArchiver(w, config.Archive.Prefix, nil), nil
	case "s3":
		s3cfg := config.Archive.S3
		w, err := archive.NewS3Writer(ctx, archive.S3Config{
			Endpoint:       s3cfg.Endpoint,
			Region:         s3cfg.Region,
			Bucket:         s3cfg.Bucket,
			AccessKey:      s3cfg.AccessKey,
			SecretKey:      s3cfg.SecretKey,
			UseSSL:         true,
			ForcePathStyle: s3cfg.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive.NewArchiver(w, config.Archive.Prefix, nil), nil
	default:
		return nil, nil
	}
}
