package main

import (
	"log"

	"leaveflow/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatalf("leaveflow: %v", err)
	}
}
