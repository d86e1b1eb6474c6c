package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/matcher"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/resolver"
)

// Store is the read side of the form store used by queries.
type Store interface {
	// FindFormByHash returns nil, nil when no form has the hash.
	FindFormByHash(ctx context.Context, hash string) (*models.Form, error)
	// FindFormOwner returns "" when the form has no recorded owner.
	FindFormOwner(ctx context.Context, formID int64) (string, error)
	ListControls(ctx context.Context, formID int64) (models.Schema, error)
	// ScanSubmissions calls fn for each submission of the form, newest
	// first, until fn returns false.
	ScanSubmissions(ctx context.Context, formID int64, fn func(*models.Submission) bool) error
}

// Authenticator maps credentials to a principal (username).
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (string, error)
}

type Request struct {
	Credentials Credentials
	FormHash    string
	Key         string
	Value       any
	Spec        matcher.Spec
	Single      bool
}

type FormSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Hash  string `json:"hash"`
}

// Match is one matching submission. Data is the payload widened to every
// schema column followed by any extra stored keys; Row is the flattened
// metadata plus schema columns, in Result.Columns order.
type Match struct {
	Submission *models.Submission
	Data       models.Record
	Row        models.Record
}

// Result is a completed query. Titles lists every schema field title in
// definition order, duplicates included; Columns is the de-duplicated row
// layout.
type Result struct {
	Form    FormSummary
	Field   resolver.Resolution
	Titles  []string
	Columns []string
	Matches []Match
}

type QueryService struct {
	auth     Authenticator
	store    Store
	resolver *resolver.Resolver
	log      zerolog.Logger
}

func NewQueryService(auth Authenticator, store Store, res *resolver.Resolver, log zerolog.Logger) *QueryService {
	if res == nil {
		res = resolver.New(nil)
	}
	return &QueryService{
		auth:     auth,
		store:    store,
		resolver: res,
		log:      log.With().Str("component", "query").Logger(),
	}
}

func (s *QueryService) Query(ctx context.Context, req Request) (*Result, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	principal, err := s.auth.Authenticate(ctx, req.Credentials)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, newError(KindUnauthenticated, StageAuthenticate, "Invalid credentials", err)
		}
		return nil, storeError(StageAuthenticate, err)
	}

	form, err := s.store.FindFormByHash(ctx, req.FormHash)
	if err != nil {
		return nil, storeError(StageLocateForm, err)
	}
	if form == nil {
		return nil, newError(KindFormNotFound, StageLocateForm, "Form not found for provided hash", nil)
	}

	owner, err := s.store.FindFormOwner(ctx, form.ID)
	if err != nil {
		return nil, storeError(StageOwnership, err)
	}
	if owner != "" && owner != principal {
		s.log.Warn().Str("user", principal).Int64("form_id", form.ID).Msg("query denied: not the form owner")
		return nil, newError(KindForbidden, StageOwnership, "You don't have access to this form", nil)
	}

	schema, err := s.store.ListControls(ctx, form.ID)
	if err != nil {
		return nil, storeError(StageResolveField, err)
	}
	field, err := s.resolver.Resolve(req.Key, schema.Titles())
	if err != nil {
		e := newError(KindFieldNotFound, StageResolveField, "Field not found for provided key", err)
		var nf *resolver.FieldNotFoundError
		if errors.As(err, &nf) {
			e.Fields = nf.Available
		}
		return nil, e
	}

	var found []*models.Submission
	err = s.store.ScanSubmissions(ctx, form.ID, func(sub *models.Submission) bool {
		stored, ok := sub.Data.Lookup(field.Title)
		if !ok {
			return true
		}
		if !matcher.Match(stored, req.Value, req.Spec) {
			return true
		}
		found = append(found, sub)
		return !req.Single
	})
	if err != nil {
		return nil, storeError(StageScan, err)
	}
	if req.Single && len(found) == 0 {
		return nil, newError(KindNoMatch, StageScan, "No submission matches the provided value", nil)
	}

	result := shape(form, field, schema, found)
	s.log.Debug().
		Str("user", principal).
		Int64("form_id", form.ID).
		Str("key", req.Key).
		Str("field", field.Title).
		Stringer("tier", field.Tier).
		Int("matches", len(result.Matches)).
		Msg("query")
	return result, nil
}

func validate(req *Request) error {
	req.FormHash = strings.TrimSpace(req.FormHash)
	req.Key = strings.TrimSpace(req.Key)
	if req.FormHash == "" || req.Key == "" || !req.Credentials.complete() {
		return newError(KindBadRequest, StageValidate,
			"Missing required fields. Required: username, password, form_hash, key. Optional: value (can be empty string), case_insensitive, strict.", nil)
	}
	if req.Spec == nil {
		req.Spec = matcher.Mode{Kind: matcher.Equals}
	}
	return nil
}
