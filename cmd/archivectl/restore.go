package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/utxoarchive/archive/errcode"
)

var restoreCommand = &cli.Command{
	Name:  "restore",
	Usage: "truncate every table back to its last published backup, clearing a dirty flush_lock",
	Action: func(c *cli.Context) error {
		_, s, err := openArchive(c)
		if err != nil && errcode.Cause(err) != errcode.ErrDirty {
			if s != nil {
				_ = s.Close()
			}
			return err
		}
		defer s.Close()

		if err := s.Restore(); err != nil {
			return err
		}
		fmt.Println("restore complete")
		return nil
	},
}
