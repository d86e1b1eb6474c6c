package repository

import (
	"context"
	"fmt"

	"github.com/jocarsa/jocarsa-lavender/internal/db"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/oxidb"
)

type FormRepo struct {
	pool *db.Pool
}

func NewFormRepo(pool *db.Pool) *FormRepo {
	return &FormRepo{pool: pool}
}

func (r *FormRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateUniqueIndex(ctx, FormsCollection, "hash"); err != nil {
		return err
	}
	if err := c.CreateUniqueIndex(ctx, OwnersCollection, "formId"); err != nil {
		return err
	}
	return c.CreateIndex(ctx, ControlsCollection, "formId")
}

func (r *FormRepo) Create(ctx context.Context, form *models.Form) error {
	doc, err := toDoc(form)
	if err != nil {
		return err
	}
	result, err := r.pool.Get().Insert(ctx, FormsCollection, doc)
	if err != nil {
		return err
	}
	form.ID, err = extractID(result)
	return err
}

func (r *FormRepo) FindByHash(ctx context.Context, hash string) (*models.Form, error) {
	doc, err := r.pool.Get().FindOne(ctx, FormsCollection, map[string]any{"hash": hash})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var f models.Form
	if err := fromDoc(doc, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FormRepo) SetOwner(ctx context.Context, formID int64, username string) error {
	_, err := r.pool.Get().Insert(ctx, OwnersCollection, map[string]any{"formId": formID, "username": username})
	return err
}

func (r *FormRepo) FindOwner(ctx context.Context, formID int64) (string, error) {
	doc, err := r.pool.Get().FindOne(ctx, OwnersCollection, map[string]any{"formId": formID})
	if err != nil || doc == nil {
		return "", err
	}
	owner, _ := doc["username"].(string)
	return owner, nil
}

func (r *FormRepo) AddControl(ctx context.Context, ctl *models.Control) error {
	doc, err := toDoc(ctl)
	if err != nil {
		return err
	}
	result, err := r.pool.Get().Insert(ctx, ControlsCollection, doc)
	if err != nil {
		return err
	}
	ctl.ID, err = extractID(result)
	return err
}

// ListControls returns the form's controls in definition order.
func (r *FormRepo) ListControls(ctx context.Context, formID int64) (models.Schema, error) {
	docs, err := r.pool.Get().Find(ctx, ControlsCollection, map[string]any{"formId": formID}, &oxidb.FindOptions{
		Sort: map[string]any{"_id": 1},
	})
	if err != nil {
		return nil, err
	}
	schema := make(models.Schema, 0, len(docs))
	for _, d := range docs {
		var ctl models.Control
		if err := fromDoc(d, &ctl); err != nil {
			return nil, fmt.Errorf("control of form %d: %w", formID, err)
		}
		schema = append(schema, ctl)
	}
	return schema, nil
}
