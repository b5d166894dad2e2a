package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/filegate/internal/server"
	"github.com/dmitrijs2005/filegate/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
