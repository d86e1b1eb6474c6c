package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/service"
	"github.com/jocarsa/jocarsa-lavender/internal/textnorm"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

type errorResponse struct {
	OK              bool     `json:"ok"`
	Error           string   `json:"error"`
	Kind            string   `json:"kind"`
	Stage           string   `json:"stage,omitempty"`
	AvailableFields []string `json:"available_fields,omitempty"`
}

// writeQueryError renders a query failure. Unexpected errors are logged
// and reported without detail.
func writeQueryError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var qe *service.Error
	if !errors.As(err, &qe) {
		log.Error().Err(err).Msg("query failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: "internal"})
		return
	}
	if qe.Kind == service.KindStoreUnavailable {
		log.Error().Err(qe.Err).Str("stage", string(qe.Stage)).Msg("store unavailable")
	}
	writeJSON(w, qe.HTTPStatus(), errorResponse{
		Error:           qe.Message,
		Kind:            string(qe.Kind),
		Stage:           string(qe.Stage),
		AvailableFields: qe.Fields,
	})
}

// input is a decoded request body: a JSON object, or form values when the
// body is not one.
type input map[string]any

var errBodyTooLarge = errors.New("request body too large")

func readInput(r *http.Request) (input, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}

	var obj map[string]any
	if json.Unmarshal(body, &obj) == nil && obj != nil {
		return input(obj), nil
	}

	in := input{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/x-www-form-urlencoded" && ct != "" {
		return in, nil
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return in, nil
	}
	for k, v := range values {
		if len(v) > 0 {
			in[k] = v[0]
		}
	}
	return in, nil
}

// str returns the trimmed text of a field; absent fields are "".
func (in input) str(key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(textnorm.Text(v))
}

// value returns a field untouched, or "" when absent or null.
func (in input) value(key string) any {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	return v
}

// flag reads a boolean option. Strings that strconv understands are parsed;
// anything else follows loose truthiness.
func (in input) flag(key string, def bool) bool {
	v, ok := in[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != "" && t != "0"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
