package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"tezuka-planner/logging"
	"tezuka-planner/relay"
)

func main() {
	logging.InitLogger("relay-service")

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Relay Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	hub := relay.NewHub()

	r := mux.NewRouter()
	r.HandleFunc("/ws", hub.HandleWS)
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	}).Methods(http.MethodGet)

	relayPort := os.Getenv("RELAY_PORT")
	if relayPort == "" {
		relayPort = "5000"
	}

	serverAddress := fmt.Sprintf(":%s", relayPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Realtime relay running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, r); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Relay failed to start: %v", err)
	}
}
