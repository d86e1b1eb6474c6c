package repository

import (
	"context"

	"github.com/jocarsa/jocarsa-lavender/internal/db"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

type UserRepo struct {
	pool *db.Pool
}

func NewUserRepo(pool *db.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateUniqueIndex(ctx, UsersCollection, "username")
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	doc, err := r.pool.Get().FindOne(ctx, UsersCollection, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var u models.User
	if err := fromDoc(doc, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	doc := map[string]any{
		"username":     user.Username,
		"passwordHash": user.PasswordHash,
	}
	result, err := r.pool.Get().Insert(ctx, UsersCollection, doc)
	if err != nil {
		return err
	}
	user.ID, err = extractID(result)
	return err
}
