package view

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/artpar/crudkit/core/apierr"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return apierr.Internal(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	return nil
}

// decodeBody reads a JSON object. Numbers stay json.Number so decimal and
// large integer input is not rounded through float64.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, badBody("Request body too large.")
		case errors.Is(err, io.EOF):
			return nil, badBody("No data provided.")
		}
		return nil, badBody("Invalid JSON.")
	}
	if dec.More() {
		return nil, badBody("Invalid JSON.")
	}

	data, ok := raw.(map[string]any)
	if !ok {
		return nil, badBody("Invalid input type.")
	}
	return data, nil
}

func badBody(msg string) error {
	return apierr.BadRequest("", map[string][]string{"_schema": {msg}})
}
