package app

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	artifactcache "focalai/internal/cache/artifact"
	"focalai/internal/gateway/config"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	idearepo "focalai/internal/gateway/repository/idea"
	"focalai/internal/gateway/service/credits"
)

type gatewayStores struct {
	ideas    idearepo.Store
	artifact artifactrepo.Store
	ledger   credits.Ledger
	db       *sql.DB
}

func (s *gatewayStores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initStores(cfg *config.Config) (*gatewayStores, error) {
	s3Factory := newArtifactS3StoreFactory(cfg)

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		return initPostgresStores(dsn, cfg, s3Factory)
	}
	return initInMemoryStores(cfg, s3Factory)
}

func newArtifactS3StoreFactory(cfg *config.Config) func() (artifactrepo.Store, error) {
	return func() (artifactrepo.Store, error) {
		s3Cfg := artifactrepo.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		}
		s3Store, err := artifactrepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		log.Printf("artifact store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return s3Store, nil
	}
}

func initPostgresStores(dsn string, cfg *config.Config, s3Factory func() (artifactrepo.Store, error)) (*gatewayStores, error) {
	db, err := idearepo.OpenPostgres(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	ideas, err := idearepo.NewPostgresStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	artifactStore, err := chooseArtifactStore(cfg, artifactrepo.NewPostgresStore(db), "postgres", s3Factory)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("idea store: postgres")
	return &gatewayStores{
		ideas:    ideas,
		artifact: artifactStore,
		ledger:   credits.NewPostgresLedger(db, cfg.Credits.Initial),
		db:       db,
	}, nil
}

func initInMemoryStores(cfg *config.Config, s3Factory func() (artifactrepo.Store, error)) (*gatewayStores, error) {
	artifactStore, err := chooseArtifactStore(cfg, artifactrepo.NewMemoryStore(), "in-memory", s3Factory)
	if err != nil {
		return nil, err
	}
	log.Printf("idea store: in-memory")
	return &gatewayStores{
		ideas:    idearepo.NewMemoryStore(),
		artifact: artifactStore,
		ledger:   credits.NewMemoryLedger(cfg.Credits.Initial),
	}, nil
}

func chooseArtifactStore(
	cfg *config.Config,
	fallback artifactrepo.Store,
	fallbackLabel string,
	s3Factory func() (artifactrepo.Store, error),
) (artifactrepo.Store, error) {
	var origin artifactrepo.Store
	if cfg.Artifact.CanUseS3() {
		s3Store, err := s3Factory()
		if err != nil {
			return nil, err
		}
		origin = s3Store
	} else {
		if cfg.Artifact.Enabled {
			log.Printf("artifact store: using %s fallback (s3 config incomplete)", fallbackLabel)
		}
		origin = fallback
	}
	if origin == nil {
		return nil, fmt.Errorf("artifact origin store is nil")
	}
	return artifactcache.NewCachedStore(origin, artifactcache.DefaultCacheConfig()), nil
}
