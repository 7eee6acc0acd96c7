package migrate

import (
	"context"
	"fmt"

	"github.com/lucasortega/cartwheel-backend/pkg/config"
	"github.com/lucasortega/cartwheel-backend/pkg/db"
	"github.com/lucasortega/cartwheel-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup. It is a no-op
// outside dev environments and behind the AUTO_MIGRATE feature flag, so
// production schema changes always go through the CLI.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"dir": DefaultDir,
	})
	logg.Info(ctx, "auto-applying pending migrations (dev)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrations up to date")
	return nil
}
