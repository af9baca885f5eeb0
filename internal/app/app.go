// Package app builds the service graph from configuration.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"stockcount-api/internal/audit"
	"stockcount-api/internal/cache"
	"stockcount-api/internal/config"
	"stockcount-api/internal/remote"
	"stockcount-api/internal/repository"
	"stockcount-api/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// App owns every long-lived component. Close releases them in reverse order of creation.
type App struct {
	Config    *config.Config
	Remote    remote.Client
	Snapshots repository.SnapshotRepository
	Journal   *audit.Journal
	Names     *cache.MemoryCache
	Pending   cache.PendingStore
	Buffer    *cache.RedisPendingBuffer
	Stores    *service.Stores
	Service   *service.InventoryService
	Scheduler *service.SyncScheduler

	redis   *redis.Client
	mongo   *mongo.Client
	closers []func() error
}

// Options overrides parts of the graph, mainly for tests.
type Options struct {
	// Remote replaces the HTTP client built from config.
	Remote remote.Client
}

// New builds the application. Stores are loaded from their snapshots before it returns.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openSnapshots(); err != nil {
		a.Close()
		return nil, err
	}
	a.openJournal()
	if err := a.openPending(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Remote = opts.Remote
	if a.Remote == nil {
		a.Remote = remote.NewHTTPClient(cfg.Remote)
	}

	a.Names = cache.NewMemoryCache(cfg.Cache.TTL)
	a.closers = append(a.closers, a.Names.Close)

	a.Stores = service.NewStores(a.Snapshots)
	a.Stores.Load(ctx)

	resolver := service.NewResolver(a.Remote, a.Stores.Lookup, a.Names, cfg.Cache.TTL, cfg.Sync.ChunkSize)
	a.Service = service.NewInventoryService(a.Remote, a.Stores, resolver, a.Pending, a.Journal, cfg.Sync)

	if cfg.Sync.Interval > 0 {
		a.Scheduler = service.NewSyncScheduler(a.Service, service.SchedulerConfig{Interval: cfg.Sync.Interval})
		a.closers = append(a.closers, func() error {
			a.Scheduler.Stop()
			return nil
		})
	}
	return a, nil
}

func (a *App) redisClient() (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	c := a.Config.Cache
	client, err := cache.NewRedisClient(c.RedisAddress(), c.RedisPassword, c.RedisDB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) mongoClient() (*mongo.Client, error) {
	if a.mongo != nil {
		return a.mongo, nil
	}
	client, err := repository.ConnectMongo(a.Config.Storage.MongoURI)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	return client, nil
}

func (a *App) openSnapshots() error {
	s := a.Config.Storage
	var (
		repo repository.SnapshotRepository
		err  error
	)

	switch strings.ToLower(s.Type) {
	case "memory":
		repo = repository.NewMemorySnapshotRepository()
	case "postgres", "postgresql":
		repo, err = repository.NewPostgresSnapshotRepository(s.PostgresDSN())
	case "mysql":
		repo, err = repository.NewMySQLSnapshotRepository(s.MySQLDSN())
	case "badger":
		repo, err = repository.NewBadgerSnapshotRepository(s.BadgerDir)
	case "redis":
		var client *redis.Client
		if client, err = a.redisClient(); err == nil {
			// The shared client is closed through the closers list.
			repo = repository.NewRedisSnapshotRepository(client, a.Config.Cache.RedisPrefix)
			a.Snapshots = repo
			log.Printf("[App] Redis snapshot storage initialized")
			return nil
		}
	case "mongodb", "mongo":
		var client *mongo.Client
		if client, err = a.mongoClient(); err == nil {
			repo, err = repository.NewMongoDBSnapshotRepository(client, s.MongoDatabase, s.MongoCollection)
		}
	case "sqlite", "":
		repo, err = repository.NewSQLiteSnapshotRepository(s.Path)
	default:
		return fmt.Errorf("unknown storage type %q", s.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s snapshot storage: %w", s.Type, err)
	}

	a.Snapshots = repo
	a.closers = append(a.closers, repo.Close)
	log.Printf("[App] %s snapshot storage initialized", s.Type)
	return nil
}

// openJournal keeps the audit log in MongoDB when a URI is configured and in the snapshot store otherwise.
func (a *App) openJournal() {
	s := a.Config.Storage
	var repo repository.AuditRepository = repository.NewSnapshotAuditRepository(a.Snapshots)

	if s.MongoURI != "" {
		client, err := a.mongoClient()
		if err != nil {
			log.Printf("[App] Warning: MongoDB audit log unavailable, using snapshot storage: %v", err)
		} else {
			repo = repository.NewMongoDBAuditRepository(client, s.MongoDatabase, s.MongoAuditCollection)
			if !strings.HasPrefix(strings.ToLower(s.Type), "mongo") {
				a.closers = append(a.closers, func() error {
					return client.Disconnect(context.Background())
				})
			}
		}
	}

	a.Journal = audit.NewJournal(repo)
	a.closers = append(a.closers, a.Journal.Close)
}

func (a *App) openPending(ctx context.Context) error {
	switch strings.ToLower(a.Config.Pending.Type) {
	case "redis":
		client, err := a.redisClient()
		if err != nil {
			return fmt.Errorf("failed to open redis pending buffer: %w", err)
		}
		a.Buffer = cache.NewRedisPendingBuffer(client, cache.RedisBufferConfig{
			FlushInterval: a.Config.Pending.FlushInterval,
			KeyPrefix:     a.Config.Cache.RedisPrefix,
		})
		a.Pending = a.Buffer
		a.closers = append(a.closers, a.Buffer.Close)
		log.Printf("[App] Redis pending buffer initialized")
	default:
		store, err := cache.NewSnapshotPendingStore(ctx, a.Snapshots)
		if err != nil {
			return fmt.Errorf("failed to open pending store: %w", err)
		}
		a.Pending = store
	}
	return nil
}

// Start launches background work: the sync scheduler and the pending buffer flush.
func (a *App) Start() {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
	if a.Buffer != nil {
		a.Buffer.Start(a.Service.CreateFlushFunc())
	}
}

// Close stops background work and releases storage.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[App] Close error: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.closers = nil
	return firstErr
}
