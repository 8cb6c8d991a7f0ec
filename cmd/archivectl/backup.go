package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var backupCommand = &cli.Command{
	Name:  "backup",
	Usage: "checkpoint every table's element count into its head without closing",
	Action: func(c *cli.Context) error {
		_, s, err := openArchive(c)
		if err != nil {
			if s != nil {
				_ = s.Close()
			}
			return err
		}
		defer s.Close()

		if err := s.Backup(); err != nil {
			return err
		}
		fmt.Println("backup complete")
		return nil
	},
}
