package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"expensetracker/internal/core"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads exactly one JSON object from r into dst. Unknown fields
// and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("malformed JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// pathID returns the numeric route variable name.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// parseAmount accepts a JSON number or numeric string such as "12.50".
func parseAmount(n json.Number) (core.Money, error) {
	if n == "" {
		return core.Money{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	return core.ParseMoney(n.String())
}

// parseOptionalDate parses YYYY-MM-DD, returning fallback for an empty value.
func parseOptionalDate(s string, fallback core.Date) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return core.ParseDate(s)
}

// parseBoolQuery reads a boolean query parameter; anything unparsable is false.
func parseBoolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
