package archive

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"
)

// Archive driver names accepted in configuration.
const (
	ARCHIVE_SQLITE   = "sqlite"
	ARCHIVE_POSTGRES = "postgres"
	ARCHIVE_NONE     = "none"
)

// Open builds the store selected by cfg.Driver. The "none" driver returns a
// nil Store and callers skip archiving.
func Open(ctx context.Context, cfg domain.ArchiveConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case ARCHIVE_NONE:
		logger.Info("Report archive disabled")
		return nil, nil
	case ARCHIVE_SQLITE, "":
		store, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite archive: %w", err)
		}
		logger.WithField("path", cfg.Path).Info("Report archive opened")
		return store, nil
	case ARCHIVE_POSTGRES:
		store, err := OpenPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres archive: %w", err)
		}
		return store, nil
	default:
		return nil, domain.NewValidationError("archive.driver", "must be sqlite, postgres or none", cfg.Driver)
	}
}
