package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], nil
}

// LocalAuthMiddleware validates tokens issued by the built-in TokenIssuer
// and attaches the caller's identity to the request context.
func LocalAuthMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			id := &Identity{
				Email:          claims.Email,
				Name:           claims.Name,
				Role:           claims.Role,
				OrganizationID: claims.OrganizationID,
			}
			if id.Role == "" {
				id.Role = RolePatient
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

// FederatedClaims is the claim set expected from an external identity
// provider. Providers differ in where they put the username, so several
// claim names are checked.
type FederatedClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	PreferredUsername string `json:"preferred_username"`
}

func (fc *FederatedClaims) username() string {
	if fc.Username != "" {
		return fc.Username
	}
	return fc.PreferredUsername
}

// FederatedConfig configures validation of externally issued tokens.
type FederatedConfig struct {
	Issuer  string
	JWKSURL string
}

// FederatedAuthMiddleware validates RS256 tokens from an external identity
// provider and resolves them to a local identity: first by federated subject
// id, then by email claim, then by username claim. When no local record
// exists a minimal patient-role identity is synthesized instead of failing,
// so that a first-time federated login can still reach profile creation.
// The fallback is logged as a degraded-trust path.
func FederatedAuthMiddleware(cfg FederatedConfig, dir UserDirectory, logger zerolog.Logger) echo.MiddlewareFunc {
	resolvedJWKSURL := cfg.JWKSURL
	if resolvedJWKSURL == "" && cfg.Issuer != "" {
		if u, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
			resolvedJWKSURL = u
		}
	}
	keyFunc := jwksKeyFunc(resolvedJWKSURL)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &FederatedClaims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}

			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			res, err := ResolveFederated(c.Request().Context(), dir, claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "identity resolution failed")
			}
			if res.Kind == ResolvedFallback {
				logger.Warn().
					Str("sub", claims.Subject).
					Str("email", claims.Email).
					Msg("federated login with no local record, using fallback identity")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), res.Identity)))
			return next(c)
		}
	}
}

// ResolveFederated maps federated claims onto a local identity record.
// Match order: federated subject id, email claim, username claim. With no
// match it synthesizes a minimal identity with the default patient role.
func ResolveFederated(ctx context.Context, dir UserDirectory, claims *FederatedClaims) (*Resolution, error) {
	if claims.Subject != "" {
		id, err := dir.FindByFederatedSub(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return &Resolution{Kind: Resolved, Identity: id}, nil
		}
	}

	email := claims.Email
	if email == "" && strings.Contains(claims.username(), "@") {
		email = claims.username()
	}

	if email != "" {
		id, err := dir.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return &Resolution{Kind: Resolved, Identity: id}, nil
		}
	}

	if u := claims.username(); u != "" && u != email {
		id, err := dir.FindByEmail(ctx, u)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return &Resolution{Kind: Resolved, Identity: id}, nil
		}
	}

	fallbackEmail := email
	if fallbackEmail == "" {
		fallbackEmail = claims.username()
	}
	return &Resolution{
		Kind: ResolvedFallback,
		Identity: &Identity{
			Email:        fallbackEmail,
			Name:         claims.Name,
			Role:         RolePatient,
			FederatedSub: claims.Subject,
			Fallback:     true,
		},
	}, nil
}
