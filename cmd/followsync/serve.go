package main

import (
	"fmt"
	"log/slog"

	"github.com/ghazisdi/followsync/engine/handlers"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "expose the engine over HTTP for a frontend",
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "listen port for http server",
			Value: 1323,
		},
	}, authFlags...),
	Action: runServe,
}

func runServe(cctx *cli.Context) error {
	setupLogging(cctx)

	eng, err := newEngine(cctx, nil)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(slogecho.New(slog.Default()))
	e.Use(echoprometheus.NewMiddleware("followsync"))

	h := handlers.NewHandlers(eng)

	e.GET("/_health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/status", h.GetStatus)
	e.GET("/nonfollowers", h.GetNonFollowers)
	e.GET("/stats", h.GetStats)

	e.POST("/scan", h.PostScan)
	e.DELETE("/scan", h.PostScanCancel)

	e.POST("/unfollow", h.PostUnfollow)
	e.DELETE("/unfollow", h.PostUnfollowCancel)

	e.POST("/classify", h.PostClassify)
	e.DELETE("/classify", h.PostClassifyCancel)

	return e.Start(fmt.Sprintf(":%d", cctx.Int("port")))
}
