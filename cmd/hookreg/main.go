package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/hookreg"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/postgres"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	ctx, cf := context.WithTimeout(context.Background(), time.Minute*5)
	defer cf()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	servers, err := db.Servers(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't load servers")
	}
	if len(servers) == 0 {
		goapp.Log.Warn().Msg("no servers configured")
		return
	}

	registrar, err := hookreg.NewRegistrar(cfg.GetString("hook.callbackURL"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init registrar")
	}

	res, err := registrar.RegisterAll(ctx, servers)
	goapp.Log.Info().Int("success", len(res.Success)).Int("failed", len(res.Failed)).Msg("done")
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("some registrations failed")
	}
}
