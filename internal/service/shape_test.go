package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

func TestWidenOrdersBySchemaAndKeepsExtras(t *testing.T) {
	payload := rec("extra", "x", "telefono", "600", "Nombre", nil)
	got := widen(payload, []string{"Nombre", "Teléfono", "DNI"})
	want := rec("Nombre", "", "Teléfono", "600", "DNI", "", "extra", "x")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("widen mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueTitlesKeepsFirstOccurrence(t *testing.T) {
	schema := models.Schema{{FieldTitle: "A"}, {FieldTitle: "B"}, {FieldTitle: "A"}}
	assert.Equal(t, []string{"A", "B"}, uniqueTitles(schema))
}
