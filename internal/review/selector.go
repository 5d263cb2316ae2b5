package review

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const (
	directKeywordWeight   = 3.0
	implicitKeywordWeight = 2.0
	semanticGroupWeight   = 1.5
	conceptWeight         = 1.0

	// Only the leading portion of the document feeds the memoization digest;
	// recomputation on a collision-free miss is always correct, so the prefix
	// just bounds hashing cost.
	selectorDigestPrefix = 2000
)

// directKeywordArticles maps literal terms 1:1 to a specific article.
var directKeywordArticles = map[string]int{
	"designated supplier":          10,
	"designated agency":            10,
	"exclusive franchise":          10,
	"tax rebate":                   13,
	"tax holiday":                  13,
	"reward tied to tax":           14,
	"tax contribution":             14,
	"fiscal reward":                14,
	"local registration":           11,
	"locally registered":           11,
	"market entry barrier":         8,
	"negative list":                8,
	"bidding restricted":           12,
	"government-set price":         17,
	"coordinate prices":            18,
	"monopoly agreement":           18,
	"goods from other regions":     9,
	"discriminatory charges":       9,
	"social insurance relief":      15,
	"regulatory exemption":         16,
}

// implicitKeywordArticles maps softer paraphrase terms to article sets.
var implicitKeywordArticles = map[string][]int{
	"local enterprises":   {9, 11},
	"local suppliers":     {9, 10},
	"preferential":        {13, 14, 15},
	"subsidy":             {14, 15},
	"reward":              {14},
	"qualification":       {8, 12},
	"approval":            {8},
	"license":             {8},
	"tender":              {12},
	"procurement":         {10, 12},
	"inspection":          {9, 16},
	"price":               {17, 18},
	"franchise":           {10},
	"registration":        {11},
	"land":                {15},
	"utilities":           {15},
}

// SemanticGroup is a named cluster of articles with its own vocabulary,
// scored only when upstream semantic hints are supplied.
type SemanticGroup struct {
	Name       string
	Articles   []int
	Vocabulary []string
}

var semanticGroups = []SemanticGroup{
	{
		Name:       "fiscal-preference",
		Articles:   []int{13, 14, 15},
		Vocabulary: []string{"tax", "rebate", "reward", "subsidy", "fiscal", "refund", "incentive", "contribution"},
	},
	{
		Name:       "market-access",
		Articles:   []int{8, 11, 12},
		Vocabulary: []string{"access", "entry", "barrier", "qualification", "registration", "approval", "bidding", "tender"},
	},
	{
		Name:       "regional-protection",
		Articles:   []int{9, 10},
		Vocabulary: []string{"local", "non-local", "region", "designated", "goods", "movement", "checkpoint", "supplier"},
	},
	{
		Name:       "conduct-intervention",
		Articles:   []int{16, 17, 18, 19},
		Vocabulary: []string{"price", "exempt", "coordinate", "monopoly", "competition", "intervention"},
	},
}

// ArticleScore is one ranked selection entry.
type ArticleScore struct {
	ArticleID int     `json:"article_id"`
	Score     float64 `json:"score"`
}

// Cache is the advisory memoization seam. Implementations may race on the
// same key harmlessly; the computation is pure, so last write wins.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ArticleSelector ranks the static catalogue by relevance to a document.
type ArticleSelector struct {
	cache Cache
}

// NewArticleSelector returns a selector memoizing through cache; a nil cache
// disables memoization.
func NewArticleSelector(cache Cache) *ArticleSelector {
	return &ArticleSelector{cache: cache}
}

// Select returns the top k articles by accumulated channel score, descending,
// ties broken by ascending article id. k <= 0 selects DefaultMaxArticles.
func (s *ArticleSelector) Select(text string, hints []string, k int) []ArticleScore {
	if k <= 0 {
		k = DefaultMaxArticles
	}
	key := selectorKey(text, hints, k)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if scores, ok := v.([]ArticleScore); ok {
				return scores
			}
		}
	}
	scores := rankArticles(text, hints, k)
	if s.cache != nil {
		s.cache.Set(key, scores)
	}
	return scores
}

func rankArticles(text string, hints []string, k int) []ArticleScore {
	lower := strings.ToLower(text)
	acc := map[int]float64{}

	// Channel 1: direct keywords, fixed 1:1 article mapping.
	for term, id := range directKeywordArticles {
		if strings.Contains(lower, term) {
			acc[id] += directKeywordWeight
		}
	}

	// Channel 2: implicit paraphrase terms over article sets.
	for term, ids := range implicitKeywordArticles {
		if !strings.Contains(lower, term) {
			continue
		}
		for _, id := range ids {
			acc[id] += implicitKeywordWeight
		}
	}

	// Channel 3: semantic groups, only when hints were supplied.
	if len(hints) > 0 {
		hintBlob := strings.ToLower(strings.Join(hints, " "))
		for _, g := range semanticGroups {
			hits := 0
			for _, term := range g.Vocabulary {
				if strings.Contains(hintBlob, term) {
					hits++
				}
			}
			if hits == 0 {
				continue
			}
			score := semanticGroupWeight * float64(hits) / float64(len(g.Vocabulary))
			for _, id := range g.Articles {
				acc[id] += score
			}
		}
	}

	// Channel 4: per-article concept tags present in the text.
	for i := range Catalogue {
		for _, concept := range Catalogue[i].Concepts {
			if strings.Contains(lower, concept) {
				acc[Catalogue[i].ID] += conceptWeight
			}
		}
	}

	// Frequency weighting, then stable top-k.
	out := make([]ArticleScore, 0, len(acc))
	for id, score := range acc {
		art := ArticleByID(id)
		if art == nil || score <= 0 {
			continue
		}
		out = append(out, ArticleScore{ArticleID: id, Score: score * art.Frequency})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ArticleID < out[j].ArticleID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func selectorKey(text string, hints []string, k int) string {
	h := sha256.New()
	prefix := text
	if len(prefix) > selectorDigestPrefix {
		prefix = prefix[:selectorDigestPrefix]
	}
	h.Write([]byte(prefix))
	h.Write([]byte{0})
	for _, hint := range hints {
		h.Write([]byte(hint))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "k=%d", k)
	return "articles:" + hex.EncodeToString(h.Sum(nil))
}
