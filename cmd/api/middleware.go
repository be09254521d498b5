package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authHeader := request.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(writer, request, fmt.Errorf("missing auth header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(writer, request, fmt.Errorf("invalid auth header"))
			return
		}

		jwtToken, err := app.authenticator.ValidateToken(parts[1])
		if err != nil {
			app.unauthorizedErrorResponse(writer, request, err)
			return
		}

		claims, ok := jwtToken.Claims.(jwt.MapClaims)
		if !ok {
			app.unauthorizedErrorResponse(writer, request, fmt.Errorf("unexpected claims type"))
			return
		}

		userID, err := strconv.ParseInt(fmt.Sprintf("%.f", claims["sub"]), 10, 64)
		if err != nil {
			app.unauthorizedErrorResponse(writer, request, err)
			return
		}

		ctx := request.Context()

		user, err := app.getUser(ctx, userID)
		if err != nil {
			app.unauthorizedErrorResponse(writer, request, err)
			return
		}

		ctx = context.WithValue(ctx, userCtx, user)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RequireRole lets the request through when the acting user ranks at least as
// high as roleName.
func (app *application) RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user := getUserFromCtx(request)

			allowed, err := app.checkRolePrecedence(request.Context(), user, roleName)
			if err != nil {
				app.internalServerError(writer, request, err)
				return
			}

			if !allowed {
				app.forbiddenResponseError(writer, request)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

func (app *application) checkRolePrecedence(ctx context.Context, user *models.User, roleName string) (bool, error) {
	if user == nil {
		return false, nil
	}

	role, err := app.roles.GetByName(ctx, roleName)
	if err != nil {
		return false, err
	}

	return user.Role.Covers(*role), nil
}

func (app *application) getUser(ctx context.Context, userID int64) (*models.User, error) {
	if !app.config.redisCfg.enabled || app.userCache == nil {
		return app.users.GetByID(ctx, userID)
	}

	user, err := app.userCache.Get(ctx, userID)
	if err != nil {
		app.logger.Warnw("user cache read failed", "userID", userID, "error", err)
		return nil, err
	}

	if user == nil {
		app.logger.Infow("fetching from db", "userID", userID)
		user, err := app.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := app.userCache.Set(ctx, user); err != nil {
			return nil, err
		}

		return user, nil
	}

	app.logger.Debugw("cache hit", "key", "user", "userID", userID)
	return user, nil
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if app.config.rateLimiter.Enabled {
			if allow, retryAfter := app.rateLimiter.Allow(request.RemoteAddr); !allow {
				app.rateLimitExceededResponse(writer, request, retryAfter.String())
				return
			}
		}
		next.ServeHTTP(writer, request)
	})
}

// SendLimiterMiddleware bounds how many dispatches one user may start per window.
func (app *application) SendLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if app.config.rateLimiter.Enabled && app.sendLimiter != nil {
			key := "user-" + strconv.FormatInt(getUserFromCtx(request).ID, 10)
			if allow, retryAfter := app.sendLimiter.Allow(key); !allow {
				app.rateLimitExceededResponse(writer, request, retryAfter.String())
				return
			}
		}
		next.ServeHTTP(writer, request)
	})
}
