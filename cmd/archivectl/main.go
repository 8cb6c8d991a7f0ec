// Command archivectl is the archive's operator CLI: create a store,
// open and inspect it, checkpoint and recover it, and push or query
// headers, blocks and merkle proofs by hand or from a script. It never
// runs consensus — archivectl only ever talks to internal/query against
// an already-validated domain.Block.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/utxoarchive/archive/conf"
	"github.com/utxoarchive/archive/log"
	"github.com/utxoarchive/archive/params"
)

var (
	dataDirFlag = &cli.StringFlag{
		Name:    "data-dir",
		Aliases: []string{"d"},
		Usage:   "archive storage directory",
		Value:   "./archive-data",
	}
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "yaml config file (overrides --data-dir's directory if set)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "trace|debug|info|warn|error",
		Value: "info",
	}
)

func main() {
	app := &cli.App{
		Name:    "archivectl",
		Usage:   "operate a UTXO archive store",
		Version: params.ArchiveVersion(params.GitCommit),
		Flags:   []cli.Flag{dataDirFlag, configFlag, logLevelFlag},
		Before: func(c *cli.Context) error {
			lc := conf.DefaultLoggerConfig()
			lc.Level = c.String(logLevelFlag.Name)
			log.Init(c.String(dataDirFlag.Name), lc)
			return nil
		},
		Commands: []*cli.Command{
			createCommand,
			inspectCommand,
			backupCommand,
			restoreCommand,
			verifyCommand,
			pushHeaderCommand,
			pushBlockCommand,
			merkleProofCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "archivectl:", err)
		os.Exit(1)
	}
}
