package main

import (
	"github.com/urfave/cli/v2"

	"github.com/utxoarchive/archive/config"
	"github.com/utxoarchive/archive/internal/query"
	"github.com/utxoarchive/archive/internal/store"
	"github.com/utxoarchive/archive/log"
)

// loadConfig resolves the effective config for a command invocation:
// the --config file if given, otherwise config.Default() with
// --data-dir substituted in as the storage directory.
func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String(configFlag.Name); path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.Directory = c.String(dataDirFlag.Name)
	return cfg, nil
}

// openStore opens a store for cfg, logging each table as it opens, and
// returns it along with whatever ErrDirty Open reported so the caller
// can decide whether to run Restore before trusting it.
func openStore(cfg config.Config) (*store.Store, error) {
	s := store.New(cfg, func(kind store.EventKind, tableID string) {
		log.Debug("table event", "table", tableID, "kind", kind.String())
	})
	err := s.Open()
	return s, err
}

// openArchive opens a store and wraps it in a query.Archive. It
// returns the dirty-store error unwrapped so callers can branch on it
// with errors.Is, alongside the live handles needed to call Restore.
func openArchive(c *cli.Context) (*query.Archive, *store.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	s, err := openStore(cfg)
	return query.New(s), s, err
}
