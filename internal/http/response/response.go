package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/groupcar/groupcar-server/internal/apperrors"
)

// errorBody is the wire shape for every failed request:
// {statusCode, status, message, timestamp}. Messages are taxonomy
// messages only; internal error details never leak to clients.
type errorBody struct {
	StatusCode int       `json:"statusCode"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps any error to the closed taxonomy and writes the structured
// body. Unknown errors become 500s and are logged with their cause; the
// client only ever sees the generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperrors.From(err)
	if ae.Kind == apperrors.KindInternal || ae.Kind == apperrors.KindEncoding {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	status := ae.Kind.HTTPStatus()
	JSON(w, status, errorBody{
		StatusCode: status,
		Status:     ae.Kind.Status(),
		Message:    safeMessage(ae),
		Timestamp:  time.Now().UTC(),
	})
}

func safeMessage(ae *apperrors.Error) string {
	if ae.Kind == apperrors.KindInternal {
		return "internal server error"
	}
	return ae.Message
}
