package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/farellandr/homerental/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
