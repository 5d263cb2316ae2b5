package review

import (
	"reflect"
	"testing"
)

type stubCache struct {
	store map[string]any
	gets  int
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{store: map[string]any{}}
}

func (c *stubCache) Get(key string) (any, bool) {
	c.gets++
	v, ok := c.store[key]
	return v, ok
}

func (c *stubCache) Set(key string, value any) {
	c.sets++
	c.store[key] = value
}

const fiscalMeasure = "Enterprises shall receive a reward tied to tax contribution and an annual tax rebate from the municipal budget."

func TestSelectRanksFiscalArticlesFirst(t *testing.T) {
	s := NewArticleSelector(nil)
	scores := s.Select(fiscalMeasure, nil, 6)

	if len(scores) == 0 {
		t.Fatal("expected selected articles")
	}
	if scores[0].ArticleID != 14 {
		t.Fatalf("expected Article 14 first, got %d", scores[0].ArticleID)
	}
	found13 := false
	for _, as := range scores {
		if as.ArticleID == 13 {
			found13 = true
		}
	}
	if !found13 {
		t.Fatal("expected Article 13 among selections")
	}
}

func TestSelectRespectsK(t *testing.T) {
	s := NewArticleSelector(nil)
	scores := s.Select(fiscalMeasure, nil, 2)
	if len(scores) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(scores))
	}
}

func TestSelectOrderingAndScores(t *testing.T) {
	s := NewArticleSelector(nil)
	scores := s.Select(riskyMeasure, nil, DefaultMaxArticles)

	for i, as := range scores {
		if as.Score <= 0 {
			t.Fatalf("non-positive score %f for article %d", as.Score, as.ArticleID)
		}
		if i == 0 {
			continue
		}
		prev := scores[i-1]
		if as.Score > prev.Score {
			t.Fatalf("scores not descending at %d", i)
		}
		if as.Score == prev.Score && as.ArticleID < prev.ArticleID {
			t.Fatalf("tie not broken by ascending id at %d", i)
		}
	}
}

func TestSelectHintsAddSemanticChannel(t *testing.T) {
	s := NewArticleSelector(nil)
	without := s.Select(fiscalMeasure, nil, 12)
	with := s.Select(fiscalMeasure, []string{"fiscal subsidy incentive"}, 12)

	score := func(scores []ArticleScore, id int) float64 {
		for _, as := range scores {
			if as.ArticleID == id {
				return as.Score
			}
		}
		return 0
	}
	if score(with, 14) <= score(without, 14) {
		t.Fatal("expected hints to raise the fiscal article score")
	}
}

func TestSelectEmptyTextNoHints(t *testing.T) {
	s := NewArticleSelector(nil)
	scores := s.Select("nothing relevant here at all", nil, 6)
	for _, as := range scores {
		if as.Score <= 0 {
			t.Fatalf("selected article %d with non-positive score", as.ArticleID)
		}
	}
}

func TestSelectMemoizes(t *testing.T) {
	c := newStubCache()
	s := NewArticleSelector(c)

	first := s.Select(fiscalMeasure, []string{"tax"}, 4)
	if c.sets != 1 {
		t.Fatalf("expected one cache write, got %d", c.sets)
	}
	second := s.Select(fiscalMeasure, []string{"tax"}, 4)
	if c.sets != 1 {
		t.Fatalf("cache hit must not rewrite, got %d writes", c.sets)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("memoized result differs from computed result")
	}

	s.Select(fiscalMeasure, []string{"tax"}, 5)
	if c.sets != 2 {
		t.Fatal("different k must produce a different cache key")
	}
}
