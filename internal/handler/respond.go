package handler

import (
	"encoding/json"
	"log"
	"net/http"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("⚠️ failed to encode response:", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Println("❌ internal error:", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
