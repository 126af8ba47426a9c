// Package selector picks the session store once, at startup.
package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/agentauth/internal/storage"
	"github.com/hongminglow/agentauth/internal/storage/file"
	"github.com/hongminglow/agentauth/internal/storage/memory"
	"github.com/hongminglow/agentauth/internal/storage/postgres"
)

// Supported store kinds.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindPostgres = "postgres"
)

// Options selects and configures a store.
type Options struct {
	Kind        string
	FilePath    string
	DatabaseURL string
	Namespace   string
}

// Open returns the configured store and the kind actually opened. A file store
// without a resolvable location falls back to memory.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (storage.Store, string, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = KindFile
	}

	switch kind {
	case KindMemory:
		return memory.New(), KindMemory, nil
	case KindFile:
		path := opts.FilePath
		if path == "" {
			p, err := file.DefaultPath()
			if err != nil {
				logger.Warn("no durable location for session; using memory", zap.Error(err))
				return memory.New(), KindMemory, nil
			}
			path = p
		}
		s, err := file.New(path)
		if err != nil {
			return nil, "", err
		}
		return s, KindFile, nil
	case KindPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, "", errors.New("DATABASE_URL is required for the postgres session store")
		}
		s, err := postgres.NewStore(ctx, opts.DatabaseURL, opts.Namespace)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres store: %w", err)
		}
		return s, KindPostgres, nil
	default:
		return nil, "", fmt.Errorf("unknown session store %q", opts.Kind)
	}
}
