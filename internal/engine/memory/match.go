package memory

import (
	"strings"
	"unicode"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
)

// tokenize lowercases and splits on non-letter/digit runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchesText requires every query term to appear somewhere in the document's
// searchable text. An empty term list matches everything.
func matchesText(d *domain.SearchDocument, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := strings.ToLower(d.SearchableText)
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

// matchesFilters applies the structured filter set: AND across families, OR
// within the multi-valued ones.
func matchesFilters(d *domain.SearchDocument, f *engine.Filters) bool {
	if f.CategoryID != "" && d.CategoryID != f.CategoryID {
		return false
	}
	if len(f.Brands) > 0 && !containsFold(f.Brands, d.Brand) {
		return false
	}
	if f.Condition != "" && d.Condition != f.Condition {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.MinPrice != nil && d.EffectivePrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && d.EffectivePrice > *f.MaxPrice {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(d.Tags, f.Tags) {
		return false
	}
	if f.InStockOnly && d.StockQuantity <= 0 {
		return false
	}
	if f.MinRating != nil && d.AverageRating < *f.MinRating {
		return false
	}
	return true
}

func containsFold(values []string, v string) bool {
	for _, c := range values {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

func anyTag(docTags, wanted []string) bool {
	for _, w := range wanted {
		if containsFold(docTags, w) {
			return true
		}
	}
	return false
}

// Field weights for relevance scoring.
const (
	weightName  = 3.0
	weightBrand = 2.0
	weightText  = 1.0
)

// score computes a simple field-weighted term match score.
func score(d *domain.SearchDocument, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	name := strings.ToLower(d.Name)
	brandModel := strings.ToLower(joinFields(d.Brand, d.Model, d.SKU))
	text := strings.ToLower(d.SearchableText)

	var s float64
	for _, t := range terms {
		if strings.Contains(name, t) {
			s += weightName
		}
		if strings.Contains(brandModel, t) {
			s += weightBrand
		}
		s += weightText * float64(strings.Count(text, t))
	}
	return s
}

func joinFields(parts ...string) string {
	return strings.Join(parts, " ")
}

// less orders two scored documents by the compiled sort keys.
func less(a *domain.SearchDocument, aScore float64, b *domain.SearchDocument, bScore float64, keys []engine.SortKey) bool {
	for _, k := range keys {
		cmp := compareField(a, aScore, b, bScore, k.Field)
		if cmp == 0 {
			continue
		}
		if k.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func compareField(a *domain.SearchDocument, aScore float64, b *domain.SearchDocument, bScore float64, field string) int {
	switch field {
	case engine.FieldScore:
		return compareFloat(aScore, bScore)
	case engine.FieldPrice:
		return compareInt(a.EffectivePrice, b.EffectivePrice)
	case engine.FieldName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case engine.FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case engine.FieldViewCount:
		return compareInt(a.ViewCount, b.ViewCount)
	case engine.FieldRating:
		return compareFloat(a.AverageRating, b.AverageRating)
	case engine.FieldReviewCount:
		return compareInt(int64(a.ReviewCount), int64(b.ReviewCount))
	case engine.FieldID:
		return strings.Compare(a.ID, b.ID)
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// highlight wraps matched terms in <em> tags for the name and description
// fields, one snippet per field that contains a match.
func highlight(d *domain.SearchDocument, terms []string) map[string][]string {
	out := make(map[string][]string)
	if snip, ok := markTerms(d.Name, terms); ok {
		out["name"] = []string{snip}
	}
	if snip, ok := markTerms(d.Description, terms); ok {
		out["description"] = []string{snip}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// markTerms wraps each case-insensitive occurrence of any term in <em> tags.
// Returns false when no term occurs in the value.
func markTerms(value string, terms []string) (string, bool) {
	lower := strings.ToLower(value)
	matchedAny := false

	var b strings.Builder
	i := 0
	for i < len(value) {
		matchLen := 0
		for _, t := range terms {
			if len(t) > matchLen && strings.HasPrefix(lower[i:], t) {
				matchLen = len(t)
			}
		}
		if matchLen > 0 {
			matchedAny = true
			b.WriteString("<em>")
			b.WriteString(value[i : i+matchLen])
			b.WriteString("</em>")
			i += matchLen
			continue
		}
		b.WriteByte(value[i])
		i++
	}

	if !matchedAny {
		return "", false
	}
	return b.String(), true
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
