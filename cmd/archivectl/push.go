package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var pushFileFlag = &cli.StringFlag{
	Name:     "file",
	Aliases:  []string{"f"},
	Usage:    "json file to read (\"-\" for stdin)",
	Required: true,
}

func openPushInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

var pushHeaderCommand = &cli.Command{
	Name:  "push-header",
	Usage: "archive a single header from a json file (see decode.go for the schema)",
	Flags: []cli.Flag{pushFileFlag},
	Action: func(c *cli.Context) error {
		f, err := openPushInput(c.String(pushFileFlag.Name))
		if err != nil {
			return err
		}
		if f != os.Stdin {
			defer f.Close()
		}
		header, err := readHeaderJSON(f)
		if err != nil {
			return err
		}

		a, s, err := openArchive(c)
		if s != nil {
			defer s.Close()
		}
		if err != nil {
			return err
		}

		link, err := a.SetHeader(header)
		if err != nil {
			return err
		}
		fmt.Printf("archived header %x at link %d\n", header.Hash, link)
		return nil
	},
}

var pushBlockCommand = &cli.Command{
	Name:  "push-block",
	Usage: "archive a header plus its transactions from a json file (see decode.go for the schema)",
	Flags: []cli.Flag{pushFileFlag},
	Action: func(c *cli.Context) error {
		f, err := openPushInput(c.String(pushFileFlag.Name))
		if err != nil {
			return err
		}
		if f != os.Stdin {
			defer f.Close()
		}
		block, err := readBlockJSON(f)
		if err != nil {
			return err
		}

		a, s, err := openArchive(c)
		if s != nil {
			defer s.Close()
		}
		if err != nil {
			return err
		}

		link, err := a.SetBlock(block)
		if err != nil {
			return err
		}
		fmt.Printf("archived block %x (%d transactions) at link %d\n", block.Header.Hash, len(block.Transactions), link)
		return nil
	},
}
