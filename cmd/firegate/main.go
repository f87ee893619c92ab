package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/firegate/firegate/internal"
	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/log"
)

var BuildVersion = "dev"

func main() {
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting firegate", map[string]any{
		"version": BuildVersion,
	})

	app, err := internal.NewFiregate(context.Background(), cfg, BuildVersion)
	if err != nil {
		log.LogError("Failed to create application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Failed to start server: %v", err)
		os.Exit(1)
	}
}
