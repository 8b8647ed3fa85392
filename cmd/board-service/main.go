package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"tezuka-planner/handlers"
	"tezuka-planner/logging"
	"tezuka-planner/repositories"
	"tezuka-planner/services"
	"tezuka-planner/syncer"
)

func main() {
	logging.InitLogger("board-service")

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Board Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	statePath := os.Getenv("STATE_FILE")
	if statePath == "" {
		statePath = "data/board-state.json"
	}

	repo := repositories.NewStateRepository(statePath)
	store := services.NewStateStore(repo)
	logging.Logger.Infof("Event ID: STATE_LOADED, Description: State loaded from %s", statePath)

	workspaceService := services.NewWorkspaceService(store)
	taskService := services.NewTaskService(store)
	notificationService := services.NewNotificationService(store)

	// Local propagation channel: reload when another process writes the
	// state file.
	watcher, err := repositories.NewStateWatcher(repo, store.Reload)
	if err != nil {
		logging.Logger.Warnf("Event ID: STATE_WATCH_UNAVAILABLE, Description: Cross-context propagation disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	// Network propagation channel, enabled when a relay is configured.
	if relayURL := os.Getenv("RELAY_URL"); relayURL != "" {
		autoPush := os.Getenv("RELAY_AUTO_PUSH") != "false"
		client := syncer.NewRelayClient(relayURL, store, autoPush)
		if err := client.Connect(); err != nil {
			logging.Logger.Warnf("Event ID: RELAY_UNAVAILABLE, Description: Continuing without network sync: %v", err)
		} else {
			defer client.Close()
		}
	}

	boardHandler := handlers.NewBoardHandler(store, workspaceService, taskService, notificationService)
	authHandler := handlers.NewAuthHandler()

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/token", authHandler.IssueToken).Methods(http.MethodPost)
	boardHandler.RegisterRoutes(r)

	corsRouter := handlers.EnableCORS(handlers.DirtyStateWarning(store, r))

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
