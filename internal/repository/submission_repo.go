package repository

import (
	"context"
	"encoding/json"

	"github.com/jocarsa/jocarsa-lavender/internal/db"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/oxidb"
)

// DefaultPageSize is how many submissions a scan fetches per round trip.
const DefaultPageSize = 200

type SubmissionRepo struct {
	pool     *db.Pool
	pageSize int
}

func NewSubmissionRepo(pool *db.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool, pageSize: DefaultPageSize}
}

func (r *SubmissionRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateIndex(ctx, SubmissionsCollection, "formId"); err != nil {
		return err
	}
	if err := c.CreateUniqueIndex(ctx, SubmissionsCollection, "uniqueId"); err != nil {
		return err
	}
	return c.CreateCompositeIndex(ctx, SubmissionsCollection, []string{"formId", "createdAt"})
}

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) error {
	doc, err := submissionToDoc(sub)
	if err != nil {
		return err
	}
	result, err := r.pool.Get().Insert(ctx, SubmissionsCollection, doc)
	if err != nil {
		return err
	}
	sub.ID, err = extractID(result)
	return err
}

// Scan pages through the form's submissions newest first and calls fn for
// each until fn returns false. Pages are keyed on the last id seen, so
// inserts during a scan neither repeat nor shift rows.
func (r *SubmissionRepo) Scan(ctx context.Context, formID int64, fn func(*models.Submission) bool) error {
	var last int64
	for {
		query := map[string]any{"formId": formID}
		if last > 0 {
			query["_id"] = map[string]any{"$lt": last}
		}
		limit := r.pageSize
		docs, err := r.pool.Get().Find(ctx, SubmissionsCollection, query, &oxidb.FindOptions{
			Sort:  map[string]any{"_id": -1},
			Limit: &limit,
		})
		if err != nil {
			return err
		}
		for _, d := range docs {
			sub, err := docToSubmission(d)
			if err != nil {
				return err
			}
			last = sub.ID
			if !fn(sub) {
				return nil
			}
		}
		if len(docs) < limit || last <= 0 {
			return nil
		}
	}
}

func (r *SubmissionRepo) CountByFormID(ctx context.Context, formID int64) (int, error) {
	return r.pool.Get().Count(ctx, SubmissionsCollection, map[string]any{"formId": formID})
}

// The payload is stored as JSON text so its key order survives the
// server's map encoding.
func submissionToDoc(s *models.Submission) (map[string]any, error) {
	doc, err := toDoc(s)
	if err != nil {
		return nil, err
	}
	data, err := s.Data.Value()
	if err != nil {
		return nil, err
	}
	doc["data"] = data
	return doc, nil
}

func docToSubmission(doc map[string]any) (*models.Submission, error) {
	raw := doc["data"]
	delete(doc, "data")
	var s models.Submission
	if err := fromDoc(doc, &s); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case string:
		if err := s.Data.Scan(v); err != nil {
			return nil, err
		}
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := s.Data.Scan(b); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
