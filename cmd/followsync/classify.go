package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

var cmdClassify = &cli.Command{
	Name:   "classify",
	Usage:  "predict follower genders from display names and print the tally",
	Flags:  authFlags,
	Action: runClassify,
}

func runClassify(cctx *cli.Context) error {
	setupLogging(cctx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(cctx, nil)
	if err != nil {
		return err
	}

	eng.OnClassificationProgress = func(done, total int) {
		if done%50 == 0 || done == total {
			fmt.Printf("classified %d/%d\n", done, total)
		}
	}

	stats, err := eng.ClassifyFollowers(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("followers: %d\n", stats.Total)
	fmt.Printf("  female:  %d\n", stats.Female)
	fmt.Printf("  male:    %d\n", stats.Male)
	fmt.Printf("  unknown: %d\n", stats.Unknown)
	return nil
}
