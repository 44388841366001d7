package webhook

import (
	"net/http"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/echo/v4"
)

const challenge = `Bearer realm="mconf-aggr"`

// authMdlw checks the bearer token against the per-domain secret from
// the store. Missing or wrong credentials get 401 with a challenge
func authMdlw(secrets SecretProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			domain := c.FormValue("domain")
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if domain == "" || token == "" {
				return unauthorized(c)
			}
			secret, err := secrets.Secret(c.Request().Context(), domain)
			if err != nil {
				goapp.Log.Error().Err(err).Str("domain", domain).Msg("can't load secret")
				return unauthorized(c)
			}
			if secret == "" || secret != token {
				goapp.Log.Warn().Str("domain", domain).Msg("wrong or unknown token")
				return unauthorized(c)
			}
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, challenge)
	return c.String(http.StatusUnauthorized, "Unauthorized")
}
