package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}
