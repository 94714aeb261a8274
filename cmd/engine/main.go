package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/config"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/migration"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/postgresql"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/redis"

	app "github.com/anteyko-labs/TradeShield-sub000/internal/app/engine"
	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	marketmakerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/marketmaker/v1"
	oraclev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/oracle/v1"
	pgtrade "github.com/anteyko-labs/TradeShield-sub000/internal/infrastructure/postgresql/trade"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/amm"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/archive"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/chain"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/ledger"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/marketmaker"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/oracle"
	orderreader "github.com/anteyko-labs/TradeShield-sub000/internal/usecase/order-reader"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/orderbook"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/settlement"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/snapshot"
	tradepublisher "github.com/anteyko-labs/TradeShield-sub000/internal/usecase/trade-publisher"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/tradelog"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg = &config.Config{}
	err = config.Load(cfg)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	log = logger
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pair, err := assetv1.ParsePair(cfg.Pair)
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "parse_pair",
		})
		return
	}

	redisConfig := redis.DefaultConfig()
	redisConfig.Addrs = []string{cfg.RedisConfig.Addrs}
	redisConfig.Password = cfg.RedisConfig.Password
	redisConfig.Username = cfg.RedisConfig.Username
	redisConfig.DB = cfg.RedisConfig.DB
	// Initialize Redis client
	rclient := redis.NewClient(log, redisConfig)

	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}

	// Core state
	ldgr := ledger.NewLedger()
	tradeLog := tradelog.NewLog(
		tradelog.WithMaxEntries(cfg.TradeLogConfig.MaxEntries),
		tradelog.WithRetention(time.Duration(cfg.TradeLogConfig.RetentionDays)*24*time.Hour),
	)
	pool := buildPool(pair)
	settler := settlement.NewSettler(ldgr, tradeLog, nil, nil, log)

	var book *orderbook.Orderbook
	if pool != nil {
		book = orderbook.NewOrderbook(pair, ldgr, settler, pool, log)
	} else {
		book = orderbook.NewOrderbook(pair, ldgr, settler, nil, log)
	}

	// Market-maker scheduler
	var scheduler marketmakerv1.Scheduler
	if cfg.MarketMakerConfig.Enabled {
		sched, err := buildScheduler(book, ldgr, pool, pair)
		if err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "build_scheduler",
			})
			return
		}
		scheduler = sched
		settler.SetRegistry(sched)
	}

	// Trade archive
	var archiver app.Archiver
	if cfg.PostgresConfig.Enabled {
		pgClient, err := postgresql.NewClient(ctx, postgresql.Config{
			Host:     cfg.PostgresConfig.Host,
			Port:     cfg.PostgresConfig.Port,
			Database: cfg.PostgresConfig.Database,
			Username: cfg.PostgresConfig.User,
			Password: cfg.PostgresConfig.Password,
		})
		if err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "connect_postgres",
			})
			return
		}
		if cfg.PostgresConfig.MigrationsDir != "" {
			runner := migration.NewRunner(pgClient, log, migration.Config{
				MigrationDir: cfg.PostgresConfig.MigrationsDir,
			})
			if err := runner.MigrateUp(ctx, 0); err != nil {
				log.Error(err, logger.Field{
					Key:   "action",
					Value: "run_migrations",
				})
				return
			}
		}

		archiver = archive.NewArchiver(pgtrade.NewRepository(pgClient, log), log)
	}

	// Stream components
	oReader := orderreader.NewReader(cfg.KafkaConfig, *log)
	publisher := tradepublisher.NewPublisher(cfg.TradePublisherConfig, *log)
	snapshotStore := snapshot.NewSnapshotStore(rclient, cfg.Pair, log)

	deps := app.Dependencies{
		Ledger:        ldgr,
		Orderbook:     book,
		TradeLog:      tradeLog,
		Scheduler:     scheduler,
		OrderReader:   oReader,
		SnapshotStore: snapshotStore,
		Publisher:     publisher,
		Archiver:      archiver,
		Chain:         chain.NewStaticClient(),
	}
	if pool != nil {
		deps.Pool = pool
	}

	options := app.DefaultEngineOptions()
	if cfg.SnapshotInterval > 0 {
		options.SnapshotInterval = time.Duration(cfg.SnapshotInterval) * time.Second
	}
	if cfg.MarketMakerConfig.IntervalSeconds > 0 {
		options.MakerInterval = time.Duration(cfg.MarketMakerConfig.IntervalSeconds) * time.Second
	}

	engine := app.NewEngineWithOptions(deps, log, cfg, options)
	settler.SetSink(engine.HandleTrade)

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Engine started successfully", logger.Field{
		Key:   "pair",
		Value: cfg.Pair,
	})

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	// Cancel the main context to signal shutdown
	cancel()

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if err := publisher.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_trade_publisher",
		})
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "disconnect_redis",
		})
	}

	log.Info("Engine shutdown complete")
}

// buildPool seeds the pair's liquidity pool from configuration. No pool is
// created unless both reserves are positive.
func buildPool(pair assetv1.Pair) *amm.Pool {
	reserveBase, err := decimal.NewFromString(cfg.PoolConfig.ReserveBase)
	if err != nil {
		log.Error(err, logger.Field{Key: "field", Value: "POOL_RESERVE_BASE"})
		return nil
	}
	reserveQuote, err := decimal.NewFromString(cfg.PoolConfig.ReserveQuote)
	if err != nil {
		log.Error(err, logger.Field{Key: "field", Value: "POOL_RESERVE_QUOTE"})
		return nil
	}
	if !reserveBase.IsPositive() || !reserveQuote.IsPositive() {
		return nil
	}

	log.Info("Liquidity pool seeded",
		logger.Field{Key: "reserveBase", Value: reserveBase},
		logger.Field{Key: "reserveQuote", Value: reserveQuote},
		logger.Field{Key: "feeBps", Value: cfg.PoolConfig.FeeBps},
	)

	return amm.NewPool(pair, reserveBase, reserveQuote, cfg.PoolConfig.FeeBps)
}

// buildScheduler wires the built-in market maker: its funded account, the
// optional price oracle and the maker registration itself.
func buildScheduler(book *orderbook.Orderbook, ldgr *ledger.Ledger, pool *amm.Pool, pair assetv1.Pair) (*marketmaker.Scheduler, error) {
	seeds := make(map[assetv1.Asset]decimal.Decimal, 2)
	seedBase, err := decimal.NewFromString(cfg.MarketMakerConfig.SeedBase)
	if err != nil {
		return nil, err
	}
	seedQuote, err := decimal.NewFromString(cfg.MarketMakerConfig.SeedQuote)
	if err != nil {
		return nil, err
	}
	if seedBase.IsPositive() {
		seeds[pair.Base] = seedBase
	}
	if seedQuote.IsPositive() {
		seeds[pair.Quote] = seedQuote
	}
	if err := ldgr.Register(cfg.MarketMakerConfig.Account, seeds); err != nil {
		return nil, err
	}

	sizeFraction, err := decimal.NewFromString(cfg.MarketMakerConfig.SizeFraction)
	if err != nil {
		return nil, err
	}

	var priceOracle oraclev1.PriceOracle
	if cfg.OracleConfig.URL != "" {
		priceOracle = oracle.NewHTTPOracle(
			cfg.OracleConfig.URL,
			time.Duration(cfg.OracleConfig.TimeoutSeconds)*time.Second,
			time.Duration(cfg.OracleConfig.MaxAgeSeconds)*time.Second,
			log,
		)
	}

	var ammPool ammv1.Pool
	if pool != nil {
		ammPool = pool
	}
	sched := marketmaker.NewScheduler(book, ldgr, priceOracle, ammPool, log)

	err = sched.AddMaker(marketmakerv1.MakerConfig{
		ID:           cfg.MarketMakerConfig.Account,
		Account:      cfg.MarketMakerConfig.Account,
		Pair:         pair,
		SpreadBps:    cfg.MarketMakerConfig.SpreadBps,
		SizeFraction: sizeFraction,
		Active:       true,
	})
	if err != nil {
		return nil, err
	}

	return sched, nil
}
