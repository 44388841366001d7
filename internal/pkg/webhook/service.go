package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
)

// Publisher pushes mapped events into the aggregator
type Publisher interface {
	Publish(ev event.Event, channelName string) error
}

// SecretProvider loads the shared secret of a server origin, "" if unknown
type SecretProvider interface {
	Secret(ctx context.Context, serverURL string) (string, error)
}

// DB provides the store round-trip for the readiness probe
type DB interface {
	Live(ctx context.Context) error
}

// Relay enqueues raw batches instead of inline processing
type Relay interface {
	SendBatch(ctx context.Context, batch *messages.RawBatch) error
}

// WSHandler accepts websocket subscriptions for meeting status push
type WSHandler interface {
	HandleConnection(c echo.Context) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Publisher Publisher
	Secrets   SecretProvider
	DB        DB
	Relay     Relay
	WSHandler WSHandler

	stopping int32
}

// MarkShutdown makes the liveness probe fail, called on exit signal
func (d *Data) MarkShutdown() {
	atomic.StoreInt32(&d.stopping, 1)
}

func (d *Data) isStopping() bool {
	return atomic.LoadInt32(&d.stopping) != 0
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP aggr webhook service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	e := initRoutes(data)

	e.Server.Addr = ":" + strconv.Itoa(data.Port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 60 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Publisher == nil {
		return fmt.Errorf("no publisher")
	}
	if data.Secrets == nil {
		return fmt.Errorf("no secret provider")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("aggr_webhook", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/", receive(data), authMdlw(data.Secrets))
	e.GET("/health", live(data))
	e.GET("/live", live(data))
	e.GET("/ready", ready(data))
	if data.WSHandler != nil {
		e.GET("/status/subscribe", func(c echo.Context) error { return data.WSHandler.HandleConnection(c) })
	}

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if data.isStopping() {
			return c.String(http.StatusServiceUnavailable, "Shutting down")
		}
		return c.String(http.StatusOK, "OK")
	}
}

func ready(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if err := data.DB.Live(c.Request().Context()); err != nil {
			goapp.Log.Error().Err(err).Msg("readiness check failed")
			return c.String(http.StatusServiceUnavailable, "DB not reachable")
		}
		return c.String(http.StatusOK, "OK")
	}
}

type result struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Accepted int    `json:"accepted"`
	Dropped  int    `json:"dropped"`
}

// receive always responds 200 - webhook senders must never be pushed
// into retry loops by internal failures. The body is diagnostic only
func receive(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("webhook receive")()
		ctx := c.Request().Context()
		rid := uuid.New().String()

		domain := c.FormValue("domain")
		evStr := c.FormValue("event")
		if domain == "" || evStr == "" {
			goapp.Log.Warn().Str("requestID", rid).Msg("no domain or event form field")
			return c.JSON(http.StatusOK, result{Status: "error", Message: "no domain or event"})
		}
		var rawEvents []map[string]any
		if err := json.Unmarshal([]byte(evStr), &rawEvents); err != nil {
			goapp.Log.Warn().Err(err).Str("requestID", rid).Str("domain", domain).Msg("unparseable event array")
			return c.JSON(http.StatusOK, result{Status: "error", Message: "unparseable event array"})
		}
		goapp.Log.Info().Str("requestID", rid).Str("domain", domain).Int("events", len(rawEvents)).Msg("webhook received")

		if data.Relay != nil {
			if err := data.Relay.SendBatch(ctx, &messages.RawBatch{Server: domain, Events: rawEvents}); err != nil {
				goapp.Log.Error().Err(err).Str("requestID", rid).Msg("can't relay batch")
				return c.JSON(http.StatusOK, result{Status: "error", Message: "relay failed"})
			}
			return c.JSON(http.StatusOK, result{Status: "ok", Accepted: len(rawEvents)})
		}

		accepted, dropped := publishBatch(data.Publisher, rawEvents, domain, rid)
		return c.JSON(http.StatusOK, result{Status: "ok", Accepted: accepted, Dropped: dropped})
	}
}

// publishBatch maps raw payloads one by one - a bad element never aborts
// the rest of the batch
func publishBatch(pub Publisher, rawEvents []map[string]any, domain, rid string) (int, int) {
	accepted, dropped := 0, 0
	for _, re := range rawEvents {
		ev, err := event.MapRaw(re, domain)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("requestID", rid).Str("domain", domain).Msg("dropping event")
			dropped++
			continue
		}
		if err := pub.Publish(ev, messages.ChannelWebhooks); err != nil {
			goapp.Log.Error().Err(err).Str("requestID", rid).Str("event", ev.Type()).Msg("can't publish")
			dropped++
			continue
		}
		accepted++
	}
	return accepted, dropped
}
