package main

import (
	"flag"
	"fmt"
	"log"

	"gatekeeper/internal/config"
	"gatekeeper/internal/server"
	"gatekeeper/internal/version"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flag.StringVar(&configPath, "c", "", "path to the YAML configuration file (shorthand)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print(version.Program))
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
