package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ghazisdi/followsync/engine"
	"github.com/ghazisdi/followsync/graph"

	"github.com/urfave/cli/v2"
)

var cmdUnfollow = &cli.Command{
	Name:      "unfollow",
	Usage:     "unfollow accounts that don't follow back",
	ArgsUsage: "<username>...",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "target every non-follower instead of the named ones",
		},
		&cli.DurationFlag{
			Name:  "min-delay",
			Usage: "lower bound of the randomized pause between unfollow calls",
			Value: 4 * time.Second,
		},
		&cli.DurationFlag{
			Name:  "max-delay",
			Usage: "upper bound of the randomized pause between unfollow calls",
			Value: 6 * time.Second,
		},
	}, authFlags...),
	Action: runUnfollow,
}

func runUnfollow(cctx *cli.Context) error {
	setupLogging(cctx)

	if !cctx.Bool("all") && cctx.Args().Len() == 0 {
		return fmt.Errorf("name at least one username, or pass --all")
	}

	// interrupt stops before the next unfollow call; already-applied
	// unfollows stay applied
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := engine.DefaultOptions()
	opts.Scheduler = &engine.SchedulerOptions{
		MinDelay: cctx.Duration("min-delay"),
		MaxDelay: cctx.Duration("max-delay"),
	}
	eng, err := newEngine(cctx, opts)
	if err != nil {
		return err
	}

	_, nf, err := eng.Sync(ctx)
	if err != nil {
		return err
	}

	targets := selectByUsername(nf, cctx.Args().Slice(), cctx.Bool("all"))
	if len(targets) == 0 {
		return fmt.Errorf("no matching accounts in the non-follower set")
	}

	eng.OnMutationOutcome = func(o engine.Outcome) {
		if o.Succeeded {
			fmt.Printf("unfollowed %s\n", o.Entity.Username)
		} else {
			fmt.Printf("failed to unfollow %s: %s\n", o.Entity.Username, o.ErrorDetail)
		}
	}

	outcomes, err := eng.Unfollow(ctx, targets)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded {
			succeeded++
		}
	}
	fmt.Printf("done: %d unfollowed, %d failed, %d skipped\n",
		succeeded, len(outcomes)-succeeded, len(targets)-len(outcomes))
	return nil
}

func selectByUsername(nf []graph.Entity, usernames []string, all bool) []string {
	var ids []string
	if all {
		for _, ent := range nf {
			ids = append(ids, ent.ID)
		}
		return ids
	}
	want := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		want[strings.ToLower(u)] = true
	}
	for _, ent := range nf {
		if want[strings.ToLower(ent.Username)] {
			ids = append(ids, ent.ID)
		}
	}
	return ids
}
