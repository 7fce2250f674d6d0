package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
)

// maxBodySize bounds request bodies; diary entries are the largest payloads.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}

func ReadJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, resp any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	return enc.Encode(resp)
}

func HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *serr.ServiceError
	if !errors.As(err, &se) {
		slog.Error("request error",
			"error", err,
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		_ = WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	attrs := []any{
		"error", err,
		"status", se.StatusCode,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	}
	for k, v := range se.Env {
		attrs = append(attrs, k, v)
	}

	if se.StatusCode >= http.StatusInternalServerError {
		slog.Error("request error", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	_ = WriteJSON(w, se.StatusCode, errorResponse{Error: se.Msg, Data: se.Data})
}
