package main

import (
	"github.com/joho/godotenv"

	"lessonmanager/internal/app/server"
)

func main() {
	// a missing .env is fine; real deployments set variables directly
	_ = godotenv.Load()
	server.Run()
}
