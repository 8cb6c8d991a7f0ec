package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/utxoarchive/archive/errcode"
)

var createCommand = &cli.Command{
	Name:  "create",
	Usage: "create a new archive store at --data-dir (or --config's directory)",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			if s != nil {
				_ = s.Close()
			}
			if errcode.Cause(err) == errcode.ErrDirty {
				return fmt.Errorf("archivectl: %s already holds a dirty store; run restore instead of create", cfg.Directory)
			}
			return err
		}
		defer s.Close()
		fmt.Printf("created archive at %s (session %s)\n", cfg.Directory, s.SessionID())
		return nil
	},
}
