package hookreg

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
)

const createHookAPI = "hooks/create"

// Registrar issues idempotent create-hook calls against every known
// conferencing server so they start delivering webhooks to us
type Registrar struct {
	httpclient  *http.Client
	callbackURL string
	getBackoff  func() backoff.BackOff
}

// NewRegistrar creates a hook registration client
func NewRegistrar(callbackURL string) (*Registrar, error) {
	if callbackURL == "" {
		return nil, fmt.Errorf("no callbackURL")
	}
	return &Registrar{
		httpclient:  &http.Client{Timeout: time.Second * 30},
		callbackURL: callbackURL,
		getBackoff:  newSimpleBackoff,
	}, nil
}

func newSimpleBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
}

// Result keeps per server registration outcomes
type Result struct {
	Success []string
	Failed  []string
}

// RegisterAll registers the callback on every server. One failing server
// never stops the others, errors are collected and merged
func (r *Registrar) RegisterAll(ctx context.Context, servers []persistence.Server) (*Result, error) {
	res := &Result{}
	var errs error
	for _, srv := range servers {
		if err := r.register(ctx, &srv); err != nil {
			goapp.Log.Error().Err(err).Str("server", srv.URL).Msg("hook registration failed")
			res.Failed = append(res.Failed, srv.URL)
			errs = multierr.Append(errs, fmt.Errorf("register %s: %w", srv.URL, err))
			continue
		}
		goapp.Log.Info().Str("server", srv.URL).Msg("hook registered")
		res.Success = append(res.Success, srv.URL)
	}
	return res, errs
}

func (r *Registrar) register(ctx context.Context, srv *persistence.Server) error {
	params := url.Values{}
	params.Set("callbackURL", r.callbackURL)
	params.Set("getRaw", "false")
	reqURL := CreateHookURL(srv.URL, params, srv.Secret)

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.httpclient.Do(req)
		if err != nil {
			return fmt.Errorf("can't call %s: %w", srv.URL, err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("wrong response code %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10000))
		if err != nil {
			return fmt.Errorf("can't read response: %w", err)
		}
		if !strings.Contains(string(body), "SUCCESS") {
			return backoff.Permanent(fmt.Errorf("server refused hook: %s", strings.TrimSpace(string(body))))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(r.getBackoff(), ctx))
}

// CreateHookURL builds the signed create-hook call: the checksum is
// SHA-1 over the api command, the encoded query and the shared secret
func CreateHookURL(server string, params url.Values, secret string) string {
	query := params.Encode()
	checksum := sha1.Sum([]byte(createHookAPI + query + secret))
	return fmt.Sprintf("%s/api/%s?%s&checksum=%x",
		strings.TrimRight(server, "/"), createHookAPI, query, checksum)
}
