package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ghazisdi/followsync/engine"
	"github.com/ghazisdi/followsync/gender"
	"github.com/ghazisdi/followsync/instagram"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

var authFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "csrf-token",
		Usage:    "csrftoken cookie of the logged-in web session",
		Required: true,
		EnvVars:  []string{"INSTA_CSRFTOKEN"},
	},
	&cli.StringFlag{
		Name:     "session-id",
		Usage:    "sessionid cookie of the logged-in web session",
		Required: true,
		EnvVars:  []string{"INSTA_SESSIONID"},
	},
	&cli.StringFlag{
		Name:     "user-id",
		Usage:    "ds_user_id of the account to operate on",
		Required: true,
		EnvVars:  []string{"INSTA_USER_ID"},
	},
	&cli.StringFlag{
		Name:    "classifier-url",
		Usage:   "endpoint of the gender inference service",
		Value:   "http://localhost:5000/predict",
		EnvVars: []string{"GENDER_CLASSIFIER_URL"},
	},
}

func run(args []string) error {
	app := cli.App{
		Name:    "followsync",
		Usage:   "sync and prune instagram follow relationships",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []*cli.Command{
		cmdScan,
		cmdUnfollow,
		cmdClassify,
		cmdServe,
	}
	return app.Run(args)
}

func setupLogging(cctx *cli.Context) {
	logLevel := slog.LevelInfo
	if cctx.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// newEngine builds a single-account session from CLI flags: instagram client,
// durable gender store and the LRU-fronted remote classifier.
func newEngine(cctx *cli.Context, opts *engine.Options) (*engine.Engine, error) {
	auth := &instagram.AuthInfo{
		CSRFToken: cctx.String("csrf-token"),
		SessionID: cctx.String("session-id"),
		UserID:    cctx.String("user-id"),
	}

	storePath, err := gender.StorePath(auth.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolving gender cache path: %w", err)
	}
	store := gender.NewStore(storePath)
	if err := store.Load(); err != nil {
		return nil, err
	}

	session := &engine.Session{
		AccountID: auth.UserID,
		Client:    instagram.NewClient(auth),
		Store:     store,
		Classifier: gender.NewCachedClassifier(&gender.HTTPClassifier{
			URL: cctx.String("classifier-url"),
		}, 10_000, time.Hour),
	}
	return engine.New(session, opts), nil
}
