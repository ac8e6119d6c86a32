package auth

import (
	"errors"

	"github.com/smallbiznis/tilegrid/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// devSecret only signs tokens outside production when AUTH_JWT_SECRET is unset.
const devSecret = "tilegrid-dev-secret"

var Module = fx.Module("auth",
	fx.Provide(NewVerifier),
)

func NewVerifier(cfg config.Config, log *zap.Logger) (Verifier, error) {
	secret := cfg.AuthJWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		log.Warn("AUTH_JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	return NewJWTVerifier(secret, cfg.AuthJWTIssuer)
}
