package repository

import (
	"context"

	"github.com/jocarsa/jocarsa-lavender/internal/db"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

// Store serves forms, submissions and accounts from OxiDB.
type Store struct {
	pool        *db.Pool
	Forms       *FormRepo
	Submissions *SubmissionRepo
	Users       *UserRepo
}

func NewStore(pool *db.Pool) *Store {
	return &Store{
		pool:        pool,
		Forms:       NewFormRepo(pool),
		Submissions: NewSubmissionRepo(pool),
		Users:       NewUserRepo(pool),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.Forms.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := s.Submissions.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.Users.EnsureIndexes(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) FindFormByHash(ctx context.Context, hash string) (*models.Form, error) {
	return s.Forms.FindByHash(ctx, hash)
}

func (s *Store) FindFormOwner(ctx context.Context, formID int64) (string, error) {
	return s.Forms.FindOwner(ctx, formID)
}

func (s *Store) ListControls(ctx context.Context, formID int64) (models.Schema, error) {
	return s.Forms.ListControls(ctx, formID)
}

func (s *Store) ScanSubmissions(ctx context.Context, formID int64, fn func(*models.Submission) bool) error {
	return s.Submissions.Scan(ctx, formID, fn)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.Users.FindByUsername(ctx, username)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.Users.Create(ctx, user)
}

// CreateForm inserts the form, its controls in order and, when owner is
// set, its ownership record.
func (s *Store) CreateForm(ctx context.Context, form *models.Form, owner string, schema models.Schema) error {
	if err := s.Forms.Create(ctx, form); err != nil {
		return err
	}
	for i := range schema {
		schema[i].FormID = form.ID
		if err := s.Forms.AddControl(ctx, &schema[i]); err != nil {
			return err
		}
	}
	if owner == "" {
		return nil
	}
	return s.Forms.SetOwner(ctx, form.ID, owner)
}

func (s *Store) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return s.Submissions.Create(ctx, sub)
}
