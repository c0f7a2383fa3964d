package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rushteam/svcrec/api"
	"github.com/rushteam/svcrec/config"
	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/datastore"
	"github.com/rushteam/svcrec/pkg/logging"
	"github.com/rushteam/svcrec/recommender"
	"github.com/rushteam/svcrec/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("SVCREC_CONFIG"), "path to YAML config")
	flag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	app, err := config.LoadApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(app.Log)
	log := logging.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, closeDS, err := openDataStore(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Str("driver", app.DataStore.Driver).Msg("open datastore")
	}
	defer closeDS()

	kv, err := openCache(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Str("backend", app.Cache.Backend).Msg("open cache")
	}
	defer kv.Close()

	pipeCfg, err := app.PipelineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load pipeline config")
	}

	engine, err := recommender.New(recommender.Options{
		Store:    ds,
		Cache:    kv,
		Config:   app,
		Pipeline: pipeCfg,
		RulesKey: app.Rules.TableKey,
		HotKey:   app.Cache.HotKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create engine")
	}

	if app.Recommend.TrainOnStart {
		if err := engine.Train(ctx, app.Recommend.Neighbors); err != nil {
			log.Error().Err(err).Msg("initial training failed")
		}
	}
	if app.Rules.MineOnStart {
		if _, err := engine.MineAssociationRules(ctx); err != nil {
			log.Error().Err(err).Msg("initial rule mining failed")
		}
	} else if err := engine.LoadAssociationRules(ctx); err != nil && !errors.Is(err, core.ErrStoreNotFound) {
		log.Warn().Err(err).Msg("load persisted rules")
	}

	srv := &http.Server{
		Addr:              app.HTTPAddr,
		Handler:           api.NewRouter(api.NewHandler(engine, app.Recommend.Neighbors)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", app.HTTPAddr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}

func openDataStore(ctx context.Context, app *config.App) (core.DataStore, func(), error) {
	switch app.DataStore.Driver {
	case "mongo":
		m, err := datastore.ConnectMongo(ctx, app.DataStore.MongoURI, app.DataStore.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Close(closeCtx)
		}, nil
	case "postgres":
		p, err := datastore.ConnectPostgres(ctx, app.DataStore.PostgresDSN, app.DataStore.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		if app.DataStore.Migrate {
			if err := p.Migrate(ctx); err != nil {
				_ = p.Close()
				return nil, nil, err
			}
		}
		return p, func() { _ = p.Close() }, nil
	default:
		if app.DataStore.FixturePath == "" {
			return datastore.NewMemory(), func() {}, nil
		}
		m, err := datastore.LoadMemoryFile(app.DataStore.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
}

func openCache(ctx context.Context, app *config.App) (core.KeyValueStore, error) {
	if app.Cache.Backend == "redis" {
		return store.NewRedisStore(ctx, app.Cache.RedisAddr, app.Cache.RedisPassword, app.Cache.RedisDB)
	}
	return store.NewMemoryStore(), nil
}
