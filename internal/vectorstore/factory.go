// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
)

// StoreOption configures a Store after creation.
type StoreOption func(store Store)

// WithIsolation sets the isolation mode for a store.
// Use NewPayloadIsolation() for multi-tenant payload filtering,
// NewFilesystemIsolation() for database-per-project isolation,
// or NewNoIsolation() for testing only.
func WithIsolation(mode IsolationMode) StoreOption {
	return func(store Store) {
		store.SetIsolationMode(mode)
	}
}

// NewStore creates a new Store from the mcpd VectorConfig (provider,
// chromPath, qdrantURL — see internal/config). Unlike the original
// fallback-capable factory this derives, only one backend is ever live at a
// time: mcpd's VectorConfig doesn't expose a remote/local fallback toggle,
// so the WAL + health-monitor fallback path (fallback.go, wal.go, health.go)
// stays in the tree adapted for direct use but isn't wired into this
// default-path constructor.
func NewStore(provider, chromPath, qdrantURL, defaultCollection string, vectorSize int, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch provider {
	case "chromem", "":
		chromemCfg := ChromemConfig{
			Path:              chromPath,
			DefaultCollection: defaultCollection,
			VectorSize:        vectorSize,
		}
		return NewChromemStore(chromemCfg, embedder, logger)

	case "qdrant":
		host, portStr, err := net.SplitHostPort(qdrantURL)
		if err != nil {
			return nil, fmt.Errorf("vector.qdrantUrl must be host:port: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("vector.qdrantUrl port must be numeric: %w", err)
		}
		qdrantCfg := QdrantConfig{
			Host:           host,
			Port:           port,
			CollectionName: defaultCollection,
			VectorSize:     uint64(vectorSize),
		}
		return NewQdrantStore(qdrantCfg, embedder)

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", provider)
	}
}

// NewStoreFromProvider creates a store directly from provider name and specific config.
// This is useful when you need more control over configuration.
func NewStoreFromProvider(provider string, chromemCfg *ChromemConfig, qdrantCfg *QdrantConfig, embedder Embedder, logger *zap.Logger, opts ...StoreOption) (Store, error) {
	var store Store
	var err error

	switch provider {
	case "chromem", "":
		if chromemCfg == nil {
			return nil, fmt.Errorf("chromem config required for chromem provider")
		}
		store, err = NewChromemStore(*chromemCfg, embedder, logger)

	case "qdrant":
		if qdrantCfg == nil {
			return nil, fmt.Errorf("qdrant config required for qdrant provider")
		}
		store, err = NewQdrantStore(*qdrantCfg, embedder)

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s", provider)
	}

	if err != nil {
		return nil, err
	}

	// Apply options (e.g., isolation mode)
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}
