package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/browser"
	redisad "review_monitor/internal/adapters/redis"
	"review_monitor/internal/adapters/sheets"
	"review_monitor/internal/app"
	"review_monitor/internal/classify"
	"review_monitor/internal/domain"
	"review_monitor/internal/extract"
	"review_monitor/internal/fetch"
	"review_monitor/internal/reply"
	"review_monitor/internal/storage/csvfile"
	"review_monitor/internal/storage/migrate"
	mysqlrepo "review_monitor/internal/storage/mysql"
	pgrepo "review_monitor/internal/storage/postgres"
	"review_monitor/internal/storage/roster"
	"review_monitor/internal/store"
)

// Services is everything the binaries run, built from one Config.
type Services struct {
	Store    *store.Reconciler
	Ingest   *app.IngestionService
	Repair   *app.RepairService
	Commands *app.CommandService
	Queries  *app.QueryService
	Roster   *app.RosterService

	closers []func() error
}

// Close releases browser, database and redis handles in reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close dependency")
		}
	}
}

func Build(ctx context.Context, cfg Config) (*Services, error) {
	s := &Services{}

	dict := classify.DefaultDictionary()
	if cfg.DictionaryPath != "" {
		d, err := classify.LoadDictionary(cfg.DictionaryPath)
		if err != nil {
			return nil, err
		}
		dict = d
	}
	cls := classify.New(dict)
	norm := extract.New()

	cloud, err := s.cloudStore(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	if cloud != nil {
		cloud = store.NewBreakerCloud(cloud, store.BreakerConfig{
			ConsecutiveFailures: cfg.BreakerFailures,
			Timeout:             cfg.BreakerTimeout,
			Interval:            store.DefaultBreakerConfig().Interval,
		})
	}
	s.Store = store.New(cloud, csvfile.New(cfg.LocalReviewsPath), domain.ReviewsSheet)
	rost := roster.New(cfg.AccommodationsPath, cfg.CleanersPath)

	var (
		cache       domain.Cache
		lock        domain.RunLock
		resolutions domain.ResolutionLog
	)
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		s.closers = append(s.closers, rc.Close)
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed; continuing, calls will retry")
		}
		cache = redisad.NewCache(rc, "reviewmon:")
		lock = redisad.NewRunLock(rc, "reviewmon:ingest-lock")
		resolutions = redisad.NewResolutionLog(rc, "reviewmon:resolutions", 1000)
	}

	chrome := browser.NewLazy(browser.Options{
		UserAgent:   firstNonEmpty(cfg.UserAgent, fetch.DefaultUserAgent),
		Headless:    cfg.ChromeHeadless,
		ExecPath:    cfg.ChromePath,
		NodeTimeout: cfg.NodeTimeout,
	})
	s.closers = append(s.closers, chrome.Close)
	fetcher := fetch.New(chrome, fetch.DefaultProfiles())

	s.Ingest = app.NewIngestionService(fetcher, norm, cls, s.Store, rost, lock, cfg.LockTTL, cache)
	s.Repair = app.NewRepairService(norm, cls, s.Store, cache)
	s.Commands = app.NewCommandService(s.Store, cls, rost, resolutions, cache)
	s.Queries = app.NewQueryService(s.Store, cls, reply.New(cls), rost, resolutions, cache, cfg.CacheTTL)
	s.Roster = app.NewRosterService(rost, cache)
	return s, nil
}

// cloudStore opens the configured backend; nil when CLOUD_BACKEND=none.
func (s *Services) cloudStore(ctx context.Context, cfg Config) (domain.CloudStore, error) {
	switch cfg.CloudBackend {
	case "sheets":
		c, err := sheets.New(cfg.SheetsBase, cfg.SheetsID, cfg.SheetsToken, cfg.SheetsRPS)
		if err != nil {
			return nil, fmt.Errorf("sheets client: %w", err)
		}
		return c, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, "mysql", func(ctx context.Context, stmt string) error {
				_, err := db.ExecContext(ctx, stmt)
				return err
			}); err != nil {
				return nil, err
			}
		}
		return mysqlrepo.New(db), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, "postgres", func(ctx context.Context, stmt string) error {
				_, err := pool.Exec(ctx, stmt)
				return err
			}); err != nil {
				return nil, err
			}
		}
		return pgrepo.New(pool), nil
	}
	return nil, nil
}

func runMigrations(ctx context.Context, dir string, exec migrate.Execer) error {
	n, err := migrate.Apply(ctx, migrate.Source(), dir, exec)
	if err != nil {
		return fmt.Errorf("%s migrations: %w", dir, err)
	}
	log.Info().Str("backend", dir).Int("statements", n).Msg("schema up to date")
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
