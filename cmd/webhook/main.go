package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/aggregator"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/postgres"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/processor"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/statusservice"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/webhook"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	printBanner()

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	agg := aggregator.New(cfg.GetInt("aggregator.queueSize"))

	proc, err := processor.NewProcessor(db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init processor")
	}
	if err := agg.Register(proc, messages.ChannelWebhooks); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't register processor")
	}

	wsh := statusservice.NewWSConnKeeper()
	notifier, err := statusservice.NewNotifier(db, wsh)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init notifier")
	}
	if err := agg.Register(notifier, messages.ChannelWebhooks); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't register notifier")
	}

	agg.Setup()
	agg.Start()
	defer agg.Stop()

	data := &webhook.Data{
		Port:      cfg.GetInt("port"),
		Publisher: agg,
		Secrets:   db,
		DB:        db,
		WSHandler: wsh,
	}
	if cfg.GetBool("relay.enabled") {
		data.Relay, err = postgres.NewSender(dbPool)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init relay sender")
		}
		goapp.Log.Info().Msg("relay mode - batches go to the queue")
	}

	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-waitCh
		goapp.Log.Info().Msg("Got exit signal")
		data.MarkShutdown()
	}()

	if err := webhook.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	goapp.Log.Info().Msg("exit web service")
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   ____ _____ _____ _____
  / __ '/ __ '/ __ '/ ___/
 / /_/ / /_/ / /_/ / /
 \__,_/\__, /\__, /_/   v: %s
      /____//____/

          __    __              __
 _    __ / /_  / /  ___  ___   / /__
| |/|/ //  _ \/ _ \/ _ \/ _ \ /  '_/
|__,__/ \____/_//_/\___/\___//_/\_\

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/mconf/mconf-aggr-sub000"))
}
