package main

import (
	"log"

	"transferengine/internal/pkg/components"
	"transferengine/internal/pkg/logging"
)

func main() {
	container, err := components.GetInstance()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	logging.Info("transfer engine initialized", map[string]interface{}{
		"environment": container.Config.Environment,
		"port":        container.Config.Server.Port,
	})

	if err := container.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
