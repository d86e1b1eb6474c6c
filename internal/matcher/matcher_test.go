package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, Equals, ParseMode(""))
	assert.Equal(t, Equals, ParseMode("equals"))
	assert.Equal(t, IContains, ParseMode(" IContains "))
	assert.Equal(t, IStartsWith, ParseMode("istartswith"))
	assert.Equal(t, IEndsWith, ParseMode("iendswith"))
	assert.Equal(t, Equals, ParseMode("regex"))
}

func TestModeMatching(t *testing.T) {
	tests := []struct {
		name      string
		candidate any
		query     any
		kind      Kind
		want      bool
	}{
		{"equals ignores accents and case", "García", "garcia", Equals, true},
		{"equals trims and collapses", "  Garcia   Lopez ", "garcia lopez", Equals, true},
		{"equals rejects partial", "Garcia Lopez", "garcia", Equals, false},
		{"icontains", "Garcia Lopez", "lopez", IContains, true},
		{"istartswith no match", "Garcia Lopez", "lopez", IStartsWith, false},
		{"istartswith", "Garcia Lopez", "GARC", IStartsWith, true},
		{"iendswith", "Garcia López", "lopez", IEndsWith, true},
		{"numeric candidate", 5.0, "5", Equals, true},
		{"nil candidate equals empty", nil, "", Equals, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.candidate, tt.query, Mode{Kind: tt.kind}))
		})
	}
}

func TestEmptyQueryWildcard(t *testing.T) {
	for _, kind := range []Kind{IContains, IStartsWith, IEndsWith} {
		assert.True(t, Match("anything", "", Mode{Kind: kind}), string(kind))
		assert.True(t, Match("anything", "   ", Mode{Kind: kind}), string(kind))
	}
	assert.False(t, Match("anything", "", Mode{Kind: Equals}))
	assert.True(t, Match("", "", Mode{Kind: Equals}))
}

func TestUnknownKindDefaultsToEquals(t *testing.T) {
	assert.True(t, Match("abc", "ABC", Mode{Kind: "weird"}))
	assert.False(t, Match("abcd", "abc", Mode{Kind: "weird"}))
	assert.True(t, Match("Abc", "abc", nil))
}

func TestLegacyStrict(t *testing.T) {
	strict := Legacy{Strict: true}
	assert.True(t, Match("Ana", "Ana", strict))
	assert.False(t, Match("Ana", "ana", strict))
	assert.False(t, Match("5", 5.0, strict))
	assert.False(t, Match("", nil, strict))
	assert.True(t, Match(nil, nil, strict))
	assert.True(t, Match(5.0, 5.0, strict))
}

func TestLegacyStrictCaseInsensitive(t *testing.T) {
	spec := Legacy{Strict: true, CaseInsensitive: true}
	assert.True(t, Match("ANA", "ana", spec))
	assert.False(t, Match("Ána", "ana", spec), "accents are not stripped")
	assert.False(t, Match("ana maria", "ana", spec))
	assert.False(t, Match(5.0, "5", spec))
}

func TestLegacyNonStrict(t *testing.T) {
	sensitive := Legacy{Strict: false}
	assert.True(t, Match("Ana Maria", "Maria", sensitive))
	assert.False(t, Match("Ana Maria", "maria", sensitive))

	insensitive := Legacy{Strict: false, CaseInsensitive: true}
	assert.True(t, Match("Ana Maria", "maria", insensitive))
	assert.True(t, Match("Ana Maria", "", insensitive))
}

func TestLegacyNonStrictLooseEquality(t *testing.T) {
	spec := Legacy{Strict: false}
	assert.True(t, Match(5.0, "5", spec))
	assert.True(t, Match("5.0", 5.0, spec))
	assert.True(t, Match(nil, "", spec))
	assert.True(t, Match(false, "", spec))
	assert.True(t, Match(true, "yes", spec))
	assert.False(t, Match(5.0, "6", spec))
	assert.False(t, Match(nil, "x", spec))
}
