package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	assert.InDelta(t, 100.0, Percent("dni", "dni"), 0.001)
	assert.InDelta(t, 0.0, Percent("abc", "xyz"), 0.001)
	assert.InDelta(t, 0.0, Percent("", ""), 0.001)
	assert.InDelta(t, 88.888, Percent("world", "word"), 0.001)
	assert.InDelta(t, 97.142, Percent("correo electronico", "correo electronic"), 0.001)
}

func TestSimilarTextThreshold(t *testing.T) {
	s := NewSimilarText(0)
	assert.Equal(t, DefaultThreshold, s.Threshold)
	assert.True(t, s.Similar("correo electronico", "correo electronic"))
	assert.False(t, s.Similar("world", "word"))

	loose := NewSimilarText(80)
	assert.True(t, loose.Similar("world", "word"))
}

func TestResolveExactTierWins(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("dni", []string{"DNI", "Documento Nacional de Identidad"})
	require.NoError(t, err)
	assert.Equal(t, "DNI", res.Title)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, TierExact, res.Tier)
}

func TestResolveExactTierBeatsEarlierContainment(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("dni", []string{"Documento de identidad DNI", "DNI"})
	require.NoError(t, err)
	assert.Equal(t, "DNI", res.Title)
	assert.Equal(t, TierExact, res.Tier)
}

func TestResolveExactAfterNormalization(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("correo electrónico ", []string{"Correo electronico"})
	require.NoError(t, err)
	assert.Equal(t, "Correo electronico", res.Title)
	assert.Equal(t, TierExact, res.Tier)
}

func TestResolveFuzzyTier(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("Correo electronic", []string{"Nombre", "Correo electrónico"})
	require.NoError(t, err)
	assert.Equal(t, "Correo electrónico", res.Title)
	assert.Equal(t, TierFuzzy, res.Tier)
}

func TestResolveFuzzyFirstInDefinitionOrder(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("telefono movi", []string{"Teléfono móvil", "Teléfono móvil 2"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, TierFuzzy, res.Tier)
}

func TestResolveContainmentTier(t *testing.T) {
	r := New(nil)
	res, err := r.Resolve("DNI", []string{"Nombre", "Indica tu DNI"})
	require.NoError(t, err)
	assert.Equal(t, "Indica tu DNI", res.Title)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, TierContains, res.Tier)
}

func TestResolveNotFound(t *testing.T) {
	r := New(nil)
	titles := []string{"Nombre", "Email"}
	_, err := r.Resolve("apellido", titles)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldNotFound))

	var nf *FieldNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "apellido", nf.Key)
	assert.Equal(t, titles, nf.Available)
}

func TestResolveBlankKeyNeverMatches(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve("  ¿¡  ", []string{"¿¡", "Nombre"})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestResolveEmptySchema(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve("nombre", nil)
	var nf *FieldNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Available)
}

type alwaysScorer struct{}

func (alwaysScorer) Similar(string, string) bool { return true }

func TestResolveUsesInjectedScorer(t *testing.T) {
	r := New(alwaysScorer{})
	res, err := r.Resolve("zzz", []string{"Nombre", "Email"})
	require.NoError(t, err)
	assert.Equal(t, "Nombre", res.Title)
	assert.Equal(t, TierFuzzy, res.Tier)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "exact", TierExact.String())
	assert.Equal(t, "fuzzy", TierFuzzy.String())
	assert.Equal(t, "contains", TierContains.String())
	assert.Equal(t, "none", TierNone.String())
}
