// Package resolver maps a caller-supplied field key onto one of a form's
// field titles, tolerating drift in casing, accents, spacing and phrasing.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jocarsa/jocarsa-lavender/internal/textnorm"
)

// Tier identifies which resolution strategy produced a hit.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierFuzzy
	TierContains
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFuzzy:
		return "fuzzy"
	case TierContains:
		return "contains"
	default:
		return "none"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ErrFieldNotFound is matched by every *FieldNotFoundError.
var ErrFieldNotFound = errors.New("field not found")

// FieldNotFoundError carries the requested key and every title that was
// considered, so callers can show the available fields.
type FieldNotFoundError struct {
	Key       string
	Available []string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found among %d fields", e.Key, len(e.Available))
}

func (e *FieldNotFoundError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Title string `json:"title"`
	Index int    `json:"index"`
	Tier  Tier   `json:"tier"`
}

// Resolver runs the tiered lookup. The zero value is not usable; use New.
type Resolver struct {
	scorer Scorer
}

// New returns a Resolver using scorer for the fuzzy tier. A nil scorer
// selects SimilarText with the default threshold.
func New(scorer Scorer) *Resolver {
	if scorer == nil {
		scorer = NewSimilarText(DefaultThreshold)
	}
	return &Resolver{scorer: scorer}
}

// Resolve returns the title in titles that key refers to. Tiers run in
// order (exact, fuzzy, contains) and the first tier with any hit decides;
// within a tier the earliest title wins.
func (r *Resolver) Resolve(key string, titles []string) (Resolution, error) {
	want := textnorm.Normalize(key)
	if want == "" {
		return Resolution{}, notFound(key, titles)
	}

	normalized := make([]string, len(titles))
	for i, title := range titles {
		normalized[i] = textnorm.Normalize(title)
	}

	tiers := []struct {
		tier  Tier
		match func(title string) bool
	}{
		{TierExact, func(title string) bool { return title == want }},
		{TierFuzzy, func(title string) bool { return r.scorer.Similar(title, want) }},
		{TierContains, func(title string) bool { return title != "" && strings.Contains(title, want) }},
	}
	for _, t := range tiers {
		for i, title := range normalized {
			if t.match(title) {
				return Resolution{Title: titles[i], Index: i, Tier: t.tier}, nil
			}
		}
	}
	return Resolution{}, notFound(key, titles)
}

func notFound(key string, titles []string) *FieldNotFoundError {
	available := make([]string, len(titles))
	copy(available, titles)
	return &FieldNotFoundError{Key: key, Available: available}
}
