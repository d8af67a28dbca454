package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/golang-jwt/jwt/v5"
	"github.com/unrolled/secure"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger *slog.Logger
	Config *Config
}

// actorClaims is the JWT payload issued by the auth front end.
type actorClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// BearerAuth parses the Authorization header and injects the actor into the
// request context. Requests without a valid token get 401.
func BearerAuth(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httpx.RespondError(w, fmt.Errorf("auth: missing bearer token: %w", httpx.ErrUnauthorized))
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			var claims actorClaims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.Config.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				cfg.Logger.Warn("rejected token", slog.String("path", r.URL.Path))
				httpx.RespondError(w, fmt.Errorf("auth: invalid token: %w", httpx.ErrUnauthorized))
				return
			}

			var actorID int64
			if claims.Subject != "" {
				id, err := strconv.ParseInt(claims.Subject, 10, 64)
				if err != nil {
					httpx.RespondError(w, fmt.Errorf("auth: invalid token subject: %w", httpx.ErrUnauthorized))
					return
				}
				actorID = id
			}

			ctx := shared.ContextWithActor(r.Context(), shared.Actor{
				ID:    actorID,
				Name:  claims.Name,
				Email: claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareStack installs the common middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
}
