/*
search.go - The matching/ranking pipeline

PIPELINE:
  1. Eligibility: item status is open AND the parent request still has at
     least one upcoming window (its deadline hasn't fully closed).
  2. Urgency filter: explicit tier when given; otherwise everything except
     EXPIRED (which eligibility already removed).
  3. Scoring: whitespace query terms, +5 name / +2 per attribute, summed
     across terms. With a query present, zero-scorers are dropped; with no
     query every eligible item is retained.
  4. Order: descending score by default; an explicit sortKey/sortDir
     overrides relevance entirely.
  5. Pagination: page/pageSize default 1/10; overrun yields an empty page.
*/
package matching

import (
	"time"

	"github.com/aidlink/inventory-engine/engine"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// SearchParams carries the caller's filters. Zero values mean "not supplied".
type SearchParams struct {
	Query    string
	Urgency  engine.Urgency // empty = default tier set (everything non-expired)
	SortKey  string         // empty = relevance order
	SortDir  SortDirection  // empty = ascending
	Page     int
	PageSize int
}

// Search runs the full pipeline over the candidate set as of now.
// Read-only and idempotent; safe to retry or cancel.
func Search(candidates []Candidate, params SearchParams, now time.Time) (PagedResult, error) {
	terms := SplitQuery(params.Query)

	ranked := make([]RankedItem, 0, len(candidates))
	for _, c := range candidates {
		if c.Item.Status != ItemOpen {
			continue
		}
		deadline := engine.LatestUpcoming(c.Windows, now)
		if deadline == nil {
			continue // no actionable window remains
		}

		urgency := engine.ClassifyUrgency(c.Windows, now)
		if params.Urgency != "" && urgency != params.Urgency {
			continue
		}

		score := ScoreItem(c.Item, terms)
		if len(terms) > 0 && score == 0 {
			continue // text search drops non-matching items entirely
		}

		ranked = append(ranked, RankedItem{
			Item:         c.Item,
			Urgency:      urgency,
			Score:        score,
			AidPeriodEnd: deadline.EndInstant(),
		})
	}

	if params.SortKey != "" {
		if err := sortByKey(ranked, params.SortKey, params.SortDir); err != nil {
			return PagedResult{}, err
		}
	} else if len(terms) > 0 {
		sortByRelevance(ranked)
	}

	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(ranked)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return PagedResult{
		Items:    ranked[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}
