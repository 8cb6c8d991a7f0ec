package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var (
	targetHeightFlag = &cli.UintFlag{
		Name:     "target",
		Usage:    "height of the block the proof is for",
		Required: true,
	}
	waypointHeightFlag = &cli.UintFlag{
		Name:     "waypoint",
		Usage:    "height of the confirmed tip the root is computed over",
		Required: true,
	}
)

var merkleProofCommand = &cli.Command{
	Name:  "merkle-proof",
	Usage: "print the merkle root and sibling path proving --target under --waypoint",
	Flags: []cli.Flag{targetHeightFlag, waypointHeightFlag},
	Action: func(c *cli.Context) error {
		a, s, err := openArchive(c)
		if s != nil {
			defer s.Close()
		}
		if err != nil {
			return err
		}

		root, proof, err := a.GetMerkleRootAndProof(uint32(c.Uint(targetHeightFlag.Name)), uint32(c.Uint(waypointHeightFlag.Name)))
		if err != nil {
			return err
		}
		fmt.Printf("root: %x\n", root)
		for i, h := range proof {
			fmt.Printf("proof[%d]: %x\n", i, h)
		}
		return nil
	},
}
