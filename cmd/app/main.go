package main

import (
	"github.com/jahatelomain/jahatelo-sub002/internal/app"
	"github.com/jahatelomain/jahatelo-sub002/internal/config"

	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()

	cfg, err := config.MustLoad()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load config")
	}

	a := app.NewApp(cfg)
	a.Run()
}
