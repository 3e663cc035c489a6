package settled

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	coreerrors "drippy/core/errors"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, errorBody{Error: reason, Message: message})
}

func writeClassified(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), coreerrors.Reason(err), err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("trailing data after body")
	}
	return nil
}
