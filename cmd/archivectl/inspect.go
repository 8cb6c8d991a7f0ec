package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/utxoarchive/archive/errcode"
)

var inspectCommand = &cli.Command{
	Name:    "inspect",
	Aliases: []string{"open"},
	Usage:   "open a store and print its chain tip and lock status",
	Action: func(c *cli.Context) error {
		a, s, err := openArchive(c)
		if err != nil && errcode.Cause(err) != errcode.ErrDirty {
			return err
		}
		defer s.Close()

		if errcode.Cause(err) == errcode.ErrDirty {
			fmt.Println("status: dirty (flush_lock present) -- run `archivectl restore` before trusting this store")
			return nil
		}

		fmt.Println("status: clean")
		fmt.Println("session:", s.SessionID())
		if top, ok, err := a.TopCandidate(); err != nil {
			return err
		} else if ok {
			fmt.Println("top candidate height:", top)
		} else {
			fmt.Println("top candidate height: (none)")
		}
		if top, ok, err := a.TopConfirmed(); err != nil {
			return err
		} else if ok {
			fmt.Println("top confirmed height:", top)
		} else {
			fmt.Println("top confirmed height: (none)")
		}
		fmt.Println("address index enabled:", a.AddressIndexEnabled())
		fmt.Println("filter index enabled:", a.FilterIndexEnabled())
		return nil
	},
}
