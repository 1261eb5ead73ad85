package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/fetcher"
	"github.com/sells-group/holdings-cli/internal/source"
	"github.com/sells-group/holdings-cli/internal/store"
)

// openStore opens the configured SQLite database and ensures the
// schema is current.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate")
	}
	return st, nil
}

// buildRegistry builds the source registry from config.
func buildRegistry() (*source.Registry, error) {
	return source.FromConfig(cfg)
}

// buildFetcher builds the dispatching fetch client from config.
func buildFetcher() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	})
}
