package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/persistence/file"
	"github.com/skillhub/flowcore/pkg/persistence/postgresql"
	"github.com/skillhub/flowcore/pkg/persistence/redis"
)

// NewPersistence picks the store from the URL scheme. A URL without a scheme is a directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch provider := ParsePersistenceProvider(databaseURL); provider {
	case "postgres":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis":
		return redis.NewPersistence(ctx, logger, databaseURL)
	case "file":
		return file.NewPersistence(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider: %s", provider)
	}
}

// ParsePersistenceProvider maps a database URL to file, postgres or redis.
func ParsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "file":
		return "file"
	case "postgres", "postgresql":
		return "postgres"
	case "redis", "rediss":
		return "redis"
	default:
		return scheme
	}
}
