package modules

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/internal/chain"
	"aibos-vmp/core/internal/config"
	"aibos-vmp/core/internal/infrastructure"
	"aibos-vmp/core/internal/notification"
	"aibos-vmp/core/internal/pkg/logger"
	"aibos-vmp/core/internal/pkg/worker"
	"aibos-vmp/core/internal/storage"

	"go.uber.org/zap"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	EntClient   *ent.Client
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Chain       *chain.Chain
	Storage     storage.Gateway
	Sender      notification.Sender
	Triggers    *notification.Triggers
	Inbox       *notification.Inbox
}

// NewInfrastructure initializes DB/pools and shared services.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		ChainPoolSize:   cfg.Worker.ChainPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	entClient := db.EntClient

	gateway, err := newStorageGateway(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		pools.Shutdown()
		return nil, fmt.Errorf("init storage gateway: %w", err)
	}

	ch := chain.New(entClient)
	sender := notification.NewInboxSender(entClient)
	triggers := notification.NewTriggers(sender, entClient)
	inbox := notification.NewInbox(entClient)

	return &Infrastructure{
		Config:    cfg,
		DB:        db,
		Pools:     pools,
		EntClient: entClient,
		Pool:      db.Pool,
		Chain:     ch,
		Storage:   gateway,
		Sender:    sender,
		Triggers:  triggers,
		Inbox:     inbox,
	}, nil
}

// newStorageGateway wires the evidence blob gateway (spec 4.B). A bucket
// name is required in every environment; there is no stdlib fallback
// because overwrite protection and signed URLs are both GCS-specific
// guarantees the evidence subsystem depends on.
func newStorageGateway(ctx context.Context, cfg config.StorageConfig) (storage.Gateway, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	logger.Info("storage gateway initialized", zap.String("bucket", cfg.Bucket))
	return storage.NewGCSGateway(client, cfg.Bucket, storage.SignedURLSigner{}), nil
}

// InitRiver initializes River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
