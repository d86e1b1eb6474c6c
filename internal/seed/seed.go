// Package seed loads users, forms and submissions from YAML fixtures.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

// DatetimeLayout is the capture timestamp format stored on submissions.
const DatetimeLayout = "2006-01-02 15:04:05"

// Writer is the store surface seeding needs.
type Writer interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	FindFormByHash(ctx context.Context, hash string) (*models.Form, error)
	CreateForm(ctx context.Context, form *models.Form, owner string, schema models.Schema) error
	CreateSubmission(ctx context.Context, sub *models.Submission) error
}

type Fixture struct {
	Users []User `yaml:"users"`
	Forms []Form `yaml:"forms"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Form struct {
	Title       string       `yaml:"title"`
	Hash        string       `yaml:"hash"`
	Owner       string       `yaml:"owner"`
	Fields      []Field      `yaml:"fields"`
	Submissions []Submission `yaml:"submissions"`
}

type Field struct {
	Title       string   `yaml:"title"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Placeholder string   `yaml:"placeholder"`
	MinLength   int      `yaml:"min_length"`
	MaxLength   int      `yaml:"max_length"`
	Required    bool     `yaml:"required"`
	Options     []string `yaml:"options"`
}

type Submission struct {
	UniqueID  string        `yaml:"unique_id"`
	Datetime  string        `yaml:"datetime"`
	IP        string        `yaml:"ip"`
	UserAgent string        `yaml:"user_agent"`
	Data      models.Record `yaml:"data"`
}

type Stats struct {
	Users       int
	Forms       int
	Submissions int
	Skipped     int
}

func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, form := range f.Forms {
		if strings.TrimSpace(form.Hash) == "" {
			return nil, fmt.Errorf("form %d (%q): hash is required", i, form.Title)
		}
	}
	return &f, nil
}

func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// Loader applies fixtures. Users and forms that already exist are skipped,
// so a fixture can be applied more than once.
type Loader struct {
	w   Writer
	now func() time.Time
}

func NewLoader(w Writer) *Loader {
	return &Loader{w: w, now: time.Now}
}

func (l *Loader) Apply(ctx context.Context, f *Fixture) (Stats, error) {
	var st Stats
	for _, u := range f.Users {
		existing, err := l.w.FindUserByUsername(ctx, u.Username)
		if err != nil {
			return st, err
		}
		if existing != nil {
			st.Skipped++
			continue
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return st, err
		}
		if err := l.w.CreateUser(ctx, &models.User{Username: u.Username, PasswordHash: hash}); err != nil {
			return st, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		st.Users++
	}

	for _, ff := range f.Forms {
		existing, err := l.w.FindFormByHash(ctx, ff.Hash)
		if err != nil {
			return st, err
		}
		if existing != nil {
			st.Skipped++
			continue
		}
		form := &models.Form{Title: ff.Title, Hash: ff.Hash, CreatedAt: l.now()}
		if err := l.w.CreateForm(ctx, form, ff.Owner, schemaOf(ff.Fields)); err != nil {
			return st, fmt.Errorf("create form %s: %w", ff.Hash, err)
		}
		st.Forms++

		for _, fs := range ff.Submissions {
			sub, err := l.submission(form.ID, fs)
			if err != nil {
				return st, fmt.Errorf("form %s: %w", ff.Hash, err)
			}
			if err := l.w.CreateSubmission(ctx, sub); err != nil {
				return st, fmt.Errorf("form %s: create submission: %w", ff.Hash, err)
			}
			st.Submissions++
		}
	}
	return st, nil
}

func schemaOf(fields []Field) models.Schema {
	return lo.Map(fields, func(f Field, _ int) models.Control {
		typ := f.Type
		if typ == "" {
			typ = "text"
		}
		return models.Control{
			FieldTitle:  f.Title,
			Type:        typ,
			Description: f.Description,
			Placeholder: f.Placeholder,
			MinLength:   f.MinLength,
			MaxLength:   f.MaxLength,
			Required:    f.Required,
			FieldValues: strings.Join(f.Options, ","),
		}
	})
}

func (l *Loader) submission(formID int64, fs Submission) (*models.Submission, error) {
	captured := l.now()
	if fs.Datetime != "" {
		t, err := time.ParseInLocation(DatetimeLayout, fs.Datetime, time.Local)
		if err != nil {
			return nil, fmt.Errorf("submission datetime %q: %w", fs.Datetime, err)
		}
		captured = t
	}
	uid := fs.UniqueID
	if uid == "" {
		uid = NewUniqueID()
	}
	return &models.Submission{
		FormID:    formID,
		UniqueID:  uid,
		Data:      fs.Data,
		Datetime:  captured.Format(DatetimeLayout),
		Epoch:     captured.Unix(),
		IP:        fs.IP,
		UserAgent: fs.UserAgent,
		CreatedAt: captured,
	}, nil
}

// NewUniqueID returns a submission token shaped like "env_" plus 13 hex digits.
func NewUniqueID() string {
	return "env_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
}
