package service

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/resolver"
)

// MetaColumns are the submission metadata columns that lead every
// flattened row.
var MetaColumns = []string{"__id", "__unique_id", "__datetime", "__epoch", "__ip", "__user_agent", "__created_at"}

const createdAtLayout = "2006-01-02 15:04:05"

func shape(form *models.Form, field resolver.Resolution, schema models.Schema, subs []*models.Submission) *Result {
	titles := uniqueTitles(schema)
	res := &Result{
		Form:    FormSummary{ID: form.ID, Title: form.Title, Hash: form.Hash},
		Field:   field,
		Titles:  schema.Titles(),
		Columns: append(append([]string{}, MetaColumns...), titles...),
		Matches: make([]Match, 0, len(subs)),
	}
	for _, sub := range subs {
		data := widen(sub.Data, titles)
		row := make(models.Record, 0, len(res.Columns))
		row = append(row,
			models.Field{Key: "__id", Value: sub.ID},
			models.Field{Key: "__unique_id", Value: sub.UniqueID},
			models.Field{Key: "__datetime", Value: sub.Datetime},
			models.Field{Key: "__epoch", Value: sub.Epoch},
			models.Field{Key: "__ip", Value: sub.IP},
			models.Field{Key: "__user_agent", Value: sub.UserAgent},
			models.Field{Key: "__created_at", Value: formatCreatedAt(sub.CreatedAt)},
		)
		row = append(row, data[:len(titles)]...)
		res.Matches = append(res.Matches, Match{Submission: sub, Data: data, Row: row})
	}
	return res
}

// uniqueTitles keeps the first occurrence of each field title.
func uniqueTitles(schema models.Schema) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	titles := make([]string, 0, len(schema))
	for _, t := range schema.Titles() {
		if seen.Add(t) {
			titles = append(titles, t)
		}
	}
	return titles
}

// widen returns one entry per title, in order, followed by the payload
// keys no title claimed. Missing or null values become "".
func widen(payload models.Record, titles []string) models.Record {
	out := make(models.Record, 0, len(titles)+len(payload))
	claimed := mapset.NewThreadUnsafeSet[int]()
	for _, t := range titles {
		var v any = ""
		if i := payload.Index(t); i >= 0 {
			claimed.Add(i)
			if payload[i].Value != nil {
				v = payload[i].Value
			}
		}
		out = append(out, models.Field{Key: t, Value: v})
	}
	for i, f := range payload {
		if claimed.Contains(i) {
			continue
		}
		if _, dup := out.Get(f.Key); !dup {
			out = append(out, f)
		}
	}
	return out
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(createdAtLayout)
}
