// Package httputil holds the JSON response writers and request decoder shared
// by every handler. Handlers never write error bodies themselves.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	dErrors "identity-gateway/pkg/domain-errors"
)

// DefaultBodyLimit bounds request bodies to 100 KiB.
const DefaultBodyLimit int64 = 100 << 10

const (
	msgInternal    = "Internal server error"
	msgUnavailable = "Service unavailable"
	msgTooLarge    = "Request body too large"
	msgBadBody     = "Invalid request body"
)

// ErrorResponse is the envelope of every error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON marshals v and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteRawJSON(w, http.StatusInternalServerError, mustErrorBody(msgInternal))
		return
	}
	WriteRawJSON(w, status, body)
}

// WriteRawJSON writes an already-encoded JSON document verbatim.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError translates err into an HTTP status and error envelope. Only
// validation-class messages are returned to the client; internal errors get a
// fixed generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := msgInternal
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		switch de.Code {
		case dErrors.CodeValidation:
			message = de.Message
		case dErrors.CodeTooLarge:
			message = msgTooLarge
		case dErrors.CodeUnavailable:
			message = msgUnavailable
		default:
			message = msgInternal
		}
	}
	WriteRawJSON(w, dErrors.ToHTTPStatus(code), mustErrorBody(message))
}

// DecodeJSON decodes a JSON request body into dst. Requests whose
// Content-Type is not application/json, and empty bodies, leave dst
// untouched. Bodies over limit fail with CodeTooLarge; anything that is not
// exactly one JSON value of dst's shape fails with CodeValidation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if r.Body == nil || !IsJSON(r) {
		return nil
	}
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		var extra json.RawMessage
		if err = dec.Decode(&extra); errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodeTooLarge, msgTooLarge)
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, msgBadBody)
}

// IsJSON reports whether the request declares an application/json body.
func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func mustErrorBody(message string) []byte {
	body, _ := json.Marshal(ErrorResponse{Error: message})
	return body
}
