package main

import (
	"fmt"
	"os"

	"github.com/mlimaops/teagrade-backend/internal/app"
	"github.com/mlimaops/teagrade-backend/internal/queue"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	srv, err := queue.NewServer(a.Log)
	if err != nil {
		a.Log.Error("Could not init queue server", "error", err)
		os.Exit(1)
	}
	handler := queue.NewHandler(a.Log, a.Services.Ingest)

	a.Log.Info("Ingestion worker starting")
	if err := srv.Run(handler.Mux()); err != nil {
		a.Log.Error("Worker exited", "error", err)
		os.Exit(1)
	}
}
