package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/matcher"
	"github.com/jocarsa/jocarsa-lavender/internal/resolver"
)

const testSecret = "test-secret"

func newTestService(store *memStore) *QueryService {
	authSvc := NewAuthService(store, testSecret, time.Hour)
	return NewQueryService(authSvc, store, resolver.New(nil), zerolog.Nop())
}

func owner() Credentials { return Credentials{Username: "jocarsa", Password: "jocarsa"} }

func fixture() *memStore {
	store := newMemStore()
	store.addUser("jocarsa", "jocarsa")
	store.addUser("intruso", "intruso")
	store.addForm(1, "abc123", "jocarsa", "DNI", "Correo electrónico", "Teléfono")
	store.addSubmission(1, rec("DNI", "12345678A", "Correo electrónico", "ana@example.com", "Teléfono", "600"))
	store.addSubmission(1, rec("DNI", "87654321B", "Correo electrónico", "luis@example.com"))
	store.addSubmission(1, rec("DNI", "12345678A", "Correo electrónico", "ana.nueva@example.com", "Teléfono", "611"))
	return store
}

func queryErr(t *testing.T, err error) *Error {
	t.Helper()
	var qe *Error
	require.True(t, errors.As(err, &qe), "expected *service.Error, got %v", err)
	return qe
}

func TestQueryExactFieldNewestFirst(t *testing.T) {
	svc := newTestService(fixture())

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "dni",
		Value:       "12345678a",
		Spec:        matcher.Mode{Kind: matcher.Equals},
	})
	require.NoError(t, err)
	assert.Equal(t, "DNI", res.Field.Title)
	assert.Equal(t, resolver.TierExact, res.Field.Tier)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, int64(3), res.Matches[0].Submission.ID)
	assert.Equal(t, int64(1), res.Matches[1].Submission.ID)
	assert.Equal(t, FormSummary{ID: 1, Title: "Form abc123", Hash: "abc123"}, res.Form)
}

func TestQueryResolvesAccentedKey(t *testing.T) {
	svc := newTestService(fixture())

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "correo electrónico ",
		Value:       "luis@",
		Spec:        matcher.Mode{Kind: matcher.IStartsWith},
	})
	require.NoError(t, err)
	assert.Equal(t, "Correo electrónico", res.Field.Title)
	assert.Equal(t, resolver.TierExact, res.Field.Tier)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(2), res.Matches[0].Submission.ID)
}

func TestQueryWidensMissingColumns(t *testing.T) {
	svc := newTestService(fixture())

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "87654321B",
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	assert.Equal(t, append(append([]string{}, MetaColumns...), "DNI", "Correo electrónico", "Teléfono"), res.Columns)
	row := res.Matches[0].Row
	assert.Equal(t, res.Columns, row.Keys())
	v, ok := row.Get("Teléfono")
	require.True(t, ok)
	assert.Equal(t, "", v)

	data := res.Matches[0].Data
	assert.Equal(t, []string{"DNI", "Correo electrónico", "Teléfono"}, data.Keys())
}

func TestQuerySingleStopsAtNewest(t *testing.T) {
	store := fixture()
	svc := newTestService(store)

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "12345678A",
		Single:      true,
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(3), res.Matches[0].Submission.ID)
}

func TestQuerySingleWithoutMatchIsNoMatch(t *testing.T) {
	svc := newTestService(fixture())

	_, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "00000000Z",
		Single:      true,
	})
	qe := queryErr(t, err)
	assert.Equal(t, KindNoMatch, qe.Kind)
	assert.Equal(t, 404, qe.HTTPStatus())
}

func TestQueryMultiWithoutMatchIsEmpty(t *testing.T) {
	svc := newTestService(fixture())

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "00000000Z",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
}

func TestQueryForbiddenForOtherUser(t *testing.T) {
	svc := newTestService(fixture())

	_, err := svc.Query(context.Background(), Request{
		Credentials: Credentials{Username: "intruso", Password: "intruso"},
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "12345678A",
	})
	qe := queryErr(t, err)
	assert.Equal(t, KindForbidden, qe.Kind)
	assert.Equal(t, StageOwnership, qe.Stage)
	assert.Equal(t, 403, qe.HTTPStatus())
}

func TestQueryFormWithoutOwnerIsOpenToAnyUser(t *testing.T) {
	store := fixture()
	store.addForm(2, "legacy", "", "Nombre")
	store.addSubmission(2, rec("Nombre", "Ana"))
	svc := newTestService(store)

	res, err := svc.Query(context.Background(), Request{
		Credentials: Credentials{Username: "intruso", Password: "intruso"},
		FormHash:    "legacy",
		Key:         "nombre",
		Value:       "ana",
		Spec:        matcher.Mode{Kind: matcher.Equals},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
}

func TestQueryBadCredentials(t *testing.T) {
	svc := newTestService(fixture())

	_, err := svc.Query(context.Background(), Request{
		Credentials: Credentials{Username: "jocarsa", Password: "wrong"},
		FormHash:    "abc123",
		Key:         "DNI",
	})
	qe := queryErr(t, err)
	assert.Equal(t, KindUnauthenticated, qe.Kind)
	assert.Equal(t, 401, qe.HTTPStatus())
}

func TestQueryAcceptsBearerToken(t *testing.T) {
	svc := newTestService(fixture())
	token, err := auth.GenerateToken(testSecret, "jocarsa", time.Hour)
	require.NoError(t, err)

	res, err := svc.Query(context.Background(), Request{
		Credentials: Credentials{Token: token},
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "87654321B",
	})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func TestQueryRejectsTokenOfRemovedUser(t *testing.T) {
	store := fixture()
	svc := newTestService(store)
	token, err := auth.GenerateToken(testSecret, "intruso", time.Hour)
	require.NoError(t, err)
	delete(store.users, "intruso")

	_, err = svc.Query(context.Background(), Request{
		Credentials: Credentials{Token: token},
		FormHash:    "abc123",
		Key:         "DNI",
	})
	qe := queryErr(t, err)
	assert.Equal(t, KindUnauthenticated, qe.Kind)
}

func TestQueryReportsEveryTitle(t *testing.T) {
	store := fixture()
	store.addForm(2, "dup", "jocarsa", "Nombre", "Nombre", "Edad")
	store.addSubmission(2, rec("Nombre", "Eva", "Edad", "41"))
	svc := newTestService(store)

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "dup",
		Key:         "edad",
		Value:       "41",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nombre", "Nombre", "Edad"}, res.Titles)
	assert.Equal(t, append(append([]string{}, MetaColumns...), "Nombre", "Edad"), res.Columns)
}

func TestQueryValidationPrecedesStoreAccess(t *testing.T) {
	cases := map[string]Request{
		"missing hash":     {Credentials: owner(), Key: "DNI"},
		"blank key":        {Credentials: owner(), FormHash: "abc123", Key: "   "},
		"missing password": {Credentials: Credentials{Username: "jocarsa"}, FormHash: "abc123", Key: "DNI"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			store := fixture()
			svc := newTestService(store)
			_, err := svc.Query(context.Background(), req)
			qe := queryErr(t, err)
			assert.Equal(t, KindBadRequest, qe.Kind)
			assert.Equal(t, StageValidate, qe.Stage)
			assert.Zero(t, store.calls)
		})
	}
}

func TestQueryUnknownForm(t *testing.T) {
	svc := newTestService(fixture())

	_, err := svc.Query(context.Background(), Request{Credentials: owner(), FormHash: "nope", Key: "DNI"})
	qe := queryErr(t, err)
	assert.Equal(t, KindFormNotFound, qe.Kind)
	assert.Equal(t, "Form not found for provided hash", qe.Message)
}

func TestQueryUnknownFieldListsAvailable(t *testing.T) {
	svc := newTestService(fixture())

	_, err := svc.Query(context.Background(), Request{Credentials: owner(), FormHash: "abc123", Key: "apellidos"})
	qe := queryErr(t, err)
	assert.Equal(t, KindFieldNotFound, qe.Kind)
	assert.Equal(t, []string{"DNI", "Correo electrónico", "Teléfono"}, qe.Fields)
	assert.True(t, errors.Is(err, resolver.ErrFieldNotFound))
}

func TestQuerySkipsSubmissionsWithoutField(t *testing.T) {
	store := fixture()
	store.addSubmission(1, rec("Comentario", "sin dni"))
	svc := newTestService(store)

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "abc123",
		Key:         "DNI",
		Value:       "",
		Spec:        matcher.Mode{Kind: matcher.IContains},
	})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 3)
	for _, m := range res.Matches {
		assert.NotEqual(t, int64(4), m.Submission.ID)
	}
}

func TestQueryLegacyStrictIsTypeSensitive(t *testing.T) {
	store := fixture()
	store.addForm(3, "nums", "jocarsa", "Edad")
	store.addSubmission(3, rec("Edad", "30"))
	store.addSubmission(3, rec("Edad", float64(30)))
	svc := newTestService(store)

	res, err := svc.Query(context.Background(), Request{
		Credentials: owner(),
		FormHash:    "nums",
		Key:         "Edad",
		Value:       "30",
		Spec:        matcher.Legacy{Strict: true},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "30", res.Matches[0].Data[0].Value)
}

func TestQueryStoreFailure(t *testing.T) {
	store := fixture()
	store.err = errors.New("disk gone")
	svc := newTestService(store)

	_, err := svc.Query(context.Background(), Request{Credentials: owner(), FormHash: "abc123", Key: "DNI"})
	qe := queryErr(t, err)
	assert.Equal(t, KindStoreUnavailable, qe.Kind)
	assert.Equal(t, StageLocateForm, qe.Stage)
	assert.Equal(t, 500, qe.HTTPStatus())
	assert.EqualError(t, errors.Unwrap(err), "disk gone")
}
