package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"tezuka-planner/models"
	"tezuka-planner/services"
	"tezuka-planner/utils"
)

func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DirtyStateWarning flags responses while the in-memory state has diverged
// from the durable copy after a failed save.
func DirtyStateWarning(store *services.StateStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store.Dirty() {
			w.Header().Set("X-State-Dirty", "true")
		}
		next.ServeHTTP(w, r)
	})
}

// actorFromRequest extracts the caller identity from the Bearer token.
func actorFromRequest(r *http.Request) (models.Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return models.Actor{}, fmt.Errorf("missing Authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	return utils.ActorFromToken(tokenString)
}

func checkRole(actor models.Actor, allowedRoles ...models.Role) error {
	for _, role := range allowedRoles {
		if role == actor.Role {
			return nil
		}
	}
	return fmt.Errorf("access forbidden: user does not have the required role")
}
