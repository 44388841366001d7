package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/aggregator"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/consumer"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/postgres"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/processor"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	ctx := context.Background()

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

	agg := aggregator.New(cfg.GetInt("aggregator.queueSize"))
	proc, err := processor.NewProcessor(db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init processor")
	}
	if err := agg.Register(proc, messages.ChannelWebhooks); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't register processor")
	}
	agg.Setup()
	agg.Start()

	data := &consumer.ServiceData{WorkerCount: cfg.GetInt("worker.count")}
	data.Publisher = agg
	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}

	printBanner()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := consumer.StartConsumerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start consumer service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
	agg.Stop()
	goapp.Log.Info().Msg("Now exit. Bye")
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
  ___ ____ ____ ______
 / _ '/ _ '/ _ '/ ___/
/ /_/ / /_/ / /_/ / /
\__,_/\__, /\__, /_/   v: %s
     /____//____/

 consumer

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/mconf/mconf-aggr-sub000"))
}
