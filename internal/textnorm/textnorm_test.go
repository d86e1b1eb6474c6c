package textnorm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"empty", "", ""},
		{"trims", "  Índice  ", "indice"},
		{"accents and case", "Número de DNI", "numero de dni"},
		{"collapses whitespace", "Correo \t\n  Electrónico", "correo electronico"},
		{"enye", "Año", "ano"},
		{"eszett", "Straße", "strasse"},
		{"drops unrepresentable", "名前 Name", "name"},
		{"float", 5.0, "5"},
		{"float fraction", 2.5, "2.5"},
		{"int", 42, "42"},
		{"bool true", true, "1"},
		{"bool false", false, ""},
		{"json number", json.Number("12"), "12"},
		{"nbsp", "García López", "garcia lopez"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  Índice  ",
		"ÆSIR  Þór",
		"Correo   electrónico ",
		"ﬁnal",
		"Ünïcödé spaces",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("indice"), Normalize("  Índice  "))
	assert.Equal(t, Normalize("correo electronico"), Normalize("Correo Electrónico "))
}

func TestText(t *testing.T) {
	assert.Equal(t, "media/a.pdf", Text("media/a.pdf"))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, `["a","b"]`, Text([]string{"a", "b"}))
	assert.Equal(t, "7", Text(int64(7)))
}
