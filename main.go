package main

import (
	"log"

	"github.com/joho/godotenv"

	"calcfleet/config"
	"calcfleet/server"
)

func main() {
	// .env удобен при локальной разработке; в проде его просто нет
	_ = godotenv.Load()

	cfg := config.MustLoad()
	app := &server.App{}
	app.Initialize(cfg)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
