package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jocarsa/jocarsa-lavender/internal/config"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

// GormDB serves forms, submissions and accounts from a SQL database.
type GormDB struct {
	db *gorm.DB
}

// NewGormDB opens the database named by cfg.
func NewGormDB(cfg *config.StoreConfig) (*GormDB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	return Open(dialector)
}

// Open wraps an already configured dialector.
func Open(dialector gorm.Dialector) (*GormDB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &GormDB{db: db}, nil
}

// AutoMigrate creates the tables the query service reads.
func (g *GormDB) AutoMigrate() error {
	return g.db.AutoMigrate(
		&models.User{},
		&models.Form{},
		&models.FormOwner{},
		&models.Control{},
		&models.Submission{},
	)
}

func (g *GormDB) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormDB) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormDB) FindFormByHash(ctx context.Context, hash string) (*models.Form, error) {
	var form models.Form
	err := g.db.WithContext(ctx).Where("hash = ?", hash).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (g *GormDB) FindFormOwner(ctx context.Context, formID int64) (string, error) {
	var owner models.FormOwner
	err := g.db.WithContext(ctx).Where("form_id = ?", formID).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return owner.Username, nil
}

// ListControls returns the form's controls in definition order.
func (g *GormDB) ListControls(ctx context.Context, formID int64) (models.Schema, error) {
	var schema models.Schema
	err := g.db.WithContext(ctx).Where("form_id = ?", formID).Order("id ASC").Find(&schema).Error
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// ScanSubmissions streams the form's submissions newest first.
func (g *GormDB) ScanSubmissions(ctx context.Context, formID int64, fn func(*models.Submission) bool) error {
	tx := g.db.WithContext(ctx)
	rows, err := tx.Model(&models.Submission{}).Where("form_id = ?", formID).Order("id DESC").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sub models.Submission
		if err := tx.ScanRows(rows, &sub); err != nil {
			return fmt.Errorf("scan submission: %w", err)
		}
		if !fn(&sub) {
			return nil
		}
	}
	return rows.Err()
}

func (g *GormDB) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := g.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *GormDB) CreateUser(ctx context.Context, user *models.User) error {
	return g.db.WithContext(ctx).Create(user).Error
}

// CreateForm inserts the form, its controls and its owner in one transaction.
func (g *GormDB) CreateForm(ctx context.Context, form *models.Form, owner string, schema models.Schema) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(form).Error; err != nil {
			return err
		}
		for i := range schema {
			schema[i].FormID = form.ID
			if err := tx.Create(&schema[i]).Error; err != nil {
				return err
			}
		}
		if owner == "" {
			return nil
		}
		return tx.Create(&models.FormOwner{FormID: form.ID, Username: owner}).Error
	})
}

func (g *GormDB) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return g.db.WithContext(ctx).Create(sub).Error
}
