package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/matcher"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/service"
)

// Querier runs submission queries.
type Querier interface {
	Query(ctx context.Context, req service.Request) (*service.Result, error)
}

type QueryHandler struct {
	svc Querier
	log zerolog.Logger
}

func NewQueryHandler(svc Querier, log zerolog.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, log: log.With().Str("component", "query-handler").Logger()}
}

type legacyMatch struct {
	ID        int64         `json:"id"`
	UniqueID  string        `json:"unique_id"`
	Datetime  string        `json:"datetime"`
	Epoch     int64         `json:"epoch"`
	IP        string        `json:"ip"`
	UserAgent string        `json:"user_agent"`
	CreatedAt string        `json:"created_at"`
	Data      models.Record `json:"data"`
}

// Legacy serves the first-generation endpoint: raw comparison flags and
// full submission payloads.
func (h *QueryHandler) Legacy(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readInput(w, r)
	if !ok {
		return
	}
	caseInsensitive := in.flag("case_insensitive", false)
	strict := in.flag("strict", true)
	req := h.request(r, in)
	req.Spec = matcher.Legacy{CaseInsensitive: caseInsensitive, Strict: strict}

	res, err := h.svc.Query(r.Context(), req)
	if err != nil {
		writeQueryError(w, h.log, err)
		return
	}

	matches := make([]legacyMatch, 0, len(res.Matches))
	for _, m := range res.Matches {
		s := m.Submission
		matches = append(matches, legacyMatch{
			ID:        s.ID,
			UniqueID:  s.UniqueID,
			Datetime:  s.Datetime,
			Epoch:     s.Epoch,
			IP:        s.IP,
			UserAgent: s.UserAgent,
			CreatedAt: createdAt(m),
			Data:      m.Data,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"form": res.Form,
		"query": map[string]any{
			"key":              req.Key,
			"field":            res.Field.Title,
			"value":            req.Value,
			"strict":           strict,
			"case_insensitive": caseInsensitive,
		},
		"columns": res.Titles,
		"matches": matches,
		"count":   len(matches),
	})
}

// Query serves the current endpoint: normalized comparison modes and
// flattened rows.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readInput(w, r)
	if !ok {
		return
	}
	mode := matcher.ParseMode(in.str("mode"))
	req := h.request(r, in)
	req.Spec = matcher.Mode{Kind: mode}
	req.Single = in.flag("single", false)

	res, err := h.svc.Query(r.Context(), req)
	if err != nil {
		writeQueryError(w, h.log, err)
		return
	}

	resp := map[string]any{
		"ok":   true,
		"form": res.Form,
		"query": map[string]any{
			"key":           res.Field.Title,
			"requested_key": req.Key,
			"tier":          res.Field.Tier,
			"value":         req.Value,
			"mode":          mode,
			"single":        req.Single,
		},
	}
	if req.Single {
		resp["row"] = res.Matches[0].Row
	} else {
		rows := make([]models.Record, 0, len(res.Matches))
		for _, m := range res.Matches {
			rows = append(rows, m.Row)
		}
		resp["rows"] = rows
		resp["columns"] = res.Columns
		resp["count"] = len(rows)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QueryHandler) readInput(w http.ResponseWriter, r *http.Request) (input, bool) {
	in, err := readInput(r)
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return in, true
}

func (h *QueryHandler) request(r *http.Request, in input) service.Request {
	creds := service.Credentials{Username: in.str("username"), Password: in.str("password")}
	if creds.Username == "" && creds.Password == "" {
		creds.Token = auth.TokenFrom(r.Context())
	}
	return service.Request{
		Credentials: creds,
		FormHash:    in.str("form_hash"),
		Key:         in.str("key"),
		Value:       in.value("value"),
	}
}

func createdAt(m service.Match) string {
	v, _ := m.Row.Get("__created_at")
	s, _ := v.(string)
	return s
}
