package analysis

import "fmt"

// Verdict is the qualitative strength label of a correlation coefficient
type Verdict string

const (
	StrongPositive   Verdict = "Strong positive correlation"
	ModeratePositive Verdict = "Moderate positive correlation"
	StrongInverse    Verdict = "Strong inverse correlation"
	ModerateInverse  Verdict = "Moderate inverse correlation"
	NoCorrelation    Verdict = "No clear correlation"
)

// Thresholds are strict: r = 0.7 is moderate, not strong.
const (
	strongThreshold   = 0.7
	moderateThreshold = 0.3
)

// Classify maps a coefficient to its verdict. Every input, NaN included, maps to exactly
// one verdict.
func Classify(r float64) Verdict {
	switch {
	case r > strongThreshold:
		return StrongPositive
	case r > moderateThreshold:
		return ModeratePositive
	case r < -strongThreshold:
		return StrongInverse
	case r < -moderateThreshold:
		return ModerateInverse
	default:
		return NoCorrelation
	}
}

// Hint is a short reading of the strong verdicts.
func (v Verdict) Hint() string {
	switch v {
	case StrongPositive:
		return "sibling trends"
	case StrongInverse:
		return "replacement effect"
	default:
		return ""
	}
}

// Pair is a keyword pair of interest
type Pair struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Title string `json:"title"`
}

// Label returns the title, or "A vs. B" when none was given
func (p Pair) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return fmt.Sprintf("%s vs. %s", p.A, p.B)
}

// DefaultPairs are the body-image and denim hypotheses the default keyword set tracks.
var DefaultPairs = []Pair{
	{A: "skinny jeans", B: "ozempic", Title: "Skinny Jeans vs. Ozempic"},
	{A: "ozempic", B: "body positivity", Title: "Ozempic vs. Body Positivity"},
	{A: "baggy jeans", B: "body positivity", Title: "Baggy Jeans vs. Body Positivity"},
	{A: "low rise jeans", B: "pilates aesthetic", Title: "Low Rise vs. Pilates Aesthetic"},
}

// AllPairs returns every unordered pair of keywords
func AllPairs(keywords []string) []Pair {
	var pairs []Pair
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			pairs = append(pairs, Pair{A: keywords[i], B: keywords[j]})
		}
	}
	return pairs
}

// PairVerdict is the classification of one pair
type PairVerdict struct {
	Pair
	Coefficient float64 `json:"coefficient"`
	Verdict     Verdict `json:"verdict"`
}
