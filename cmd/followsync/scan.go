package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var cmdScan = &cli.Command{
	Name:   "scan",
	Usage:  "fetch both relationship edges and list accounts not following back",
	Flags:  append([]cli.Flag{filterFlag}, authFlags...),
	Action: runScan,
}

var filterFlag = &cli.StringFlag{
	Name:  "filter",
	Usage: "case-insensitive username substring to restrict output",
}

func runScan(cctx *cli.Context) error {
	setupLogging(cctx)
	ctx := context.Background()

	eng, err := newEngine(cctx, nil)
	if err != nil {
		return err
	}

	snap, nf, err := eng.Sync(ctx)
	if err != nil {
		return err
	}

	if q := cctx.String("filter"); q != "" {
		eng.SetFilter(q)
		nf = eng.Filtered()
	}

	if snap.Truncated {
		fmt.Println("WARNING: partial results, one of the fetches stopped early")
	}
	fmt.Printf("%d of the %d accounts you follow don't follow back\n", len(nf), len(snap.Following))
	for _, ent := range nf {
		fmt.Printf("%s\t%s\t%s\n", ent.ID, ent.Username, ent.DisplayName)
	}
	return nil
}
