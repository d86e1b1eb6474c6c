package service

import (
	"context"
	"sort"
	"time"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

type memStore struct {
	forms    []models.Form
	owners   map[int64]string
	controls []models.Control
	subs     []models.Submission
	users    map[string]*models.User

	err   error
	calls int
}

func newMemStore() *memStore {
	return &memStore{owners: map[int64]string{}, users: map[string]*models.User{}}
}

func (m *memStore) FindFormByHash(_ context.Context, hash string) (*models.Form, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.forms {
		if m.forms[i].Hash == hash {
			return &m.forms[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) FindFormOwner(_ context.Context, formID int64) (string, error) {
	m.calls++
	return m.owners[formID], nil
}

func (m *memStore) ListControls(_ context.Context, formID int64) (models.Schema, error) {
	m.calls++
	var out models.Schema
	for _, c := range m.controls {
		if c.FormID == formID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ScanSubmissions(_ context.Context, formID int64, fn func(*models.Submission) bool) error {
	m.calls++
	subs := make([]models.Submission, 0, len(m.subs))
	for _, s := range m.subs {
		if s.FormID == formID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID > subs[j].ID })
	for i := range subs {
		if !fn(&subs[i]) {
			return nil
		}
	}
	return nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.calls++
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	u.ID = int64(len(m.users) + 1)
	m.users[u.Username] = u
	return nil
}

func (m *memStore) addUser(username, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	m.users[username] = &models.User{ID: int64(len(m.users) + 1), Username: username, PasswordHash: hash}
}

func (m *memStore) addForm(id int64, hash, owner string, titles ...string) {
	m.forms = append(m.forms, models.Form{ID: id, Title: "Form " + hash, Hash: hash})
	if owner != "" {
		m.owners[id] = owner
	}
	for _, t := range titles {
		m.controls = append(m.controls, models.Control{
			ID: int64(len(m.controls) + 1), FormID: id, FieldTitle: t, Type: "text",
		})
	}
}

func (m *memStore) addSubmission(formID int64, data models.Record) *models.Submission {
	id := int64(len(m.subs) + 1)
	created := time.Date(2024, 5, 1, 10, 0, int(id), 0, time.UTC)
	m.subs = append(m.subs, models.Submission{
		ID:        id,
		FormID:    formID,
		UniqueID:  "env_test" + string(rune('a'+id)),
		Data:      data,
		Datetime:  created.Format("2006-01-02 15:04:05"),
		Epoch:     created.Unix(),
		IP:        "127.0.0.1",
		UserAgent: "test",
		CreatedAt: created,
	})
	return &m.subs[len(m.subs)-1]
}

func rec(kv ...any) models.Record {
	var r models.Record
	for i := 0; i+1 < len(kv); i += 2 {
		r = append(r, models.Field{Key: kv[i].(string), Value: kv[i+1]})
	}
	return r
}
