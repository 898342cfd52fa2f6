package server

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON error envelope for the API.
//
// Diagnostic fields (Bucket, Path) are filled for storage/catalog mismatches
// so they can be debugged without reading logs; credentials never appear here.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Bucket string `json:"bucket,omitempty"`
	Path   string `json:"path,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}
