package resolver

// DefaultThreshold is the minimum similarity percentage for a fuzzy hit.
const DefaultThreshold = 90.0

// Scorer decides whether two normalized strings are close enough to be
// treated as the same field. Implementations are pure.
type Scorer interface {
	Similar(fieldTitle, requestedKey string) bool
}

// SimilarText scores strings with the longest-common-substring recursion
// known from PHP's similar_text.
type SimilarText struct {
	Threshold float64
}

// NewSimilarText returns a scorer with the given threshold, falling back to
// DefaultThreshold when threshold is not positive.
func NewSimilarText(threshold float64) SimilarText {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return SimilarText{Threshold: threshold}
}

func (s SimilarText) Similar(fieldTitle, requestedKey string) bool {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Percent(fieldTitle, requestedKey) >= threshold
}

// Percent returns 2*matched*100/(len(a)+len(b)), counted in runes.
func Percent(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return float64(commonChars(ra, rb)*2) * 100 / float64(total)
}

// commonChars sums the lengths of the first longest common substring and,
// recursively, of the common substrings to its left and right.
func commonChars(a, b []rune) int {
	posA, posB, max := longestCommon(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if posA > 0 && posB > 0 {
		sum += commonChars(a[:posA], b[:posB])
	}
	if posA+max < len(a) && posB+max < len(b) {
		sum += commonChars(a[posA+max:], b[posB+max:])
	}
	return sum
}

// longestCommon finds the first longest common substring of a and b.
func longestCommon(a, b []rune) (posA, posB, max int) {
	for i := range a {
		for j := range b {
			n := 0
			for i+n < len(a) && j+n < len(b) && a[i+n] == b[j+n] {
				n++
			}
			if n > max {
				posA, posB, max = i, j, n
			}
		}
	}
	return posA, posB, max
}
