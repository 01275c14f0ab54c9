package main

import (
	"github.com/Raimguhinov/alarm-go/internal/app"
	"github.com/Raimguhinov/alarm-go/internal/config"
)

func main() {
	cfg := config.GetConfig()

	app.Run(cfg)
}
