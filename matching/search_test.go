package matching_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

// now anchors every test; windows are placed relative to it by day offset.
var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func windowAt(t *testing.T, daysAhead int) engine.ScheduledWindow {
	t.Helper()
	day := now.AddDate(0, 0, daysAhead).Format("2006-01-02")
	w, err := engine.ParseWindow(day, "09:00", "17:00")
	require.NoError(t, err)
	return w
}

func candidate(t *testing.T, id, name string, attrs []string, status matching.ItemStatus, daysAhead int) matching.Candidate {
	t.Helper()
	return matching.Candidate{
		Item: matching.AidItem{
			ID:           id,
			RequestID:    "req-" + id,
			BranchID:     "b1",
			TemplateName: name,
			Attributes:   attrs,
			Quantity:     decimal.NewFromInt(1),
			Status:       status,
			CreatedAt:    now,
		},
		Windows: []engine.ScheduledWindow{windowAt(t, daysAhead)},
	}
}

func ids(items []matching.RankedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Item.ID
	}
	return out
}

// =============================================================================
// SCORING
// =============================================================================

func TestScoreItem_NameAndAttributeHits(t *testing.T) {
	item := matching.AidItem{TemplateName: "Rice 5kg", Attributes: []string{"White", "Long Grain"}}

	assert.Equal(t, 7, matching.ScoreItem(item, matching.SplitQuery("rice white")))
	assert.Equal(t, 5, matching.ScoreItem(item, matching.SplitQuery("RICE")))
	assert.Equal(t, 2, matching.ScoreItem(item, matching.SplitQuery("grain")))
	assert.Equal(t, 0, matching.ScoreItem(item, matching.SplitQuery("blankets")))
	assert.Equal(t, 0, matching.ScoreItem(item, nil))
}

func TestScoreItem_SameTermCanHitNameAndAttribute(t *testing.T) {
	item := matching.AidItem{TemplateName: "Rice 5kg", Attributes: []string{"Rice Flour"}}
	assert.Equal(t, 7, matching.ScoreItem(item, matching.SplitQuery("rice")))
}

// =============================================================================
// ELIGIBILITY AND FILTERS
// =============================================================================

func TestSearch_SkipsNonOpenAndClosedItems(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "open", "Rice 5kg", nil, matching.ItemOpen, 5),
		candidate(t, "fulfilled", "Rice 5kg", nil, matching.ItemFulfilled, 5),
		candidate(t, "declined", "Rice 5kg", nil, matching.ItemDeclined, 5),
		candidate(t, "past", "Rice 5kg", nil, matching.ItemOpen, -2),
	}

	result, err := matching.Search(candidates, matching.SearchParams{}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, ids(result.Items))
	assert.Equal(t, 1, result.Total)
}

func TestSearch_UrgencyFilter(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "soon", "Rice 5kg", nil, matching.ItemOpen, 2), // very urgent
		candidate(t, "week", "Blankets", nil, matching.ItemOpen, 6), // urgent
		candidate(t, "distant", "Canned Beans", nil, matching.ItemOpen, 30),
	}

	result, err := matching.Search(candidates, matching.SearchParams{Urgency: engine.Urgent}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"week"}, ids(result.Items))

	// No filter keeps every eligible tier.
	result, err = matching.Search(candidates, matching.SearchParams{}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
}

func TestSearch_QueryDropsZeroScorersOrderedByRelevance(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "attr-only", "Lentils", []string{"White"}, matching.ItemOpen, 5),
		candidate(t, "both", "Rice 5kg", []string{"White"}, matching.ItemOpen, 5),
		candidate(t, "name-only", "Rice 1kg", nil, matching.ItemOpen, 5),
		candidate(t, "miss", "Blankets", nil, matching.ItemOpen, 5),
	}

	result, err := matching.Search(candidates, matching.SearchParams{Query: "rice white"}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "name-only", "attr-only"}, ids(result.Items))
	assert.Equal(t, 7, result.Items[0].Score)
	assert.Equal(t, 3, result.Total)
}

func TestSearch_NoQueryKeepsInputOrder(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "a", "Rice 5kg", nil, matching.ItemOpen, 5),
		candidate(t, "b", "Blankets", nil, matching.ItemOpen, 5),
	}

	result, err := matching.Search(candidates, matching.SearchParams{}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(result.Items))
	assert.Zero(t, result.Items[0].Score)
}

// =============================================================================
// SORTING
// =============================================================================

func TestSearch_ExplicitSortOverridesRelevance(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "z", "Zucchini", nil, matching.ItemOpen, 5),
		candidate(t, "a", "Apples", nil, matching.ItemOpen, 5),
		candidate(t, "m", "Milk", nil, matching.ItemOpen, 5),
	}

	result, err := matching.Search(candidates, matching.SearchParams{SortKey: matching.SortByName}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, ids(result.Items))

	result, err = matching.Search(candidates, matching.SearchParams{
		SortKey: matching.SortByName,
		SortDir: matching.Descending,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "m", "a"}, ids(result.Items))
}

func TestSearch_SortByAidPeriodEnd(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "late", "Rice 5kg", nil, matching.ItemOpen, 20),
		candidate(t, "soon", "Rice 5kg", nil, matching.ItemOpen, 2),
		candidate(t, "mid", "Rice 5kg", nil, matching.ItemOpen, 9),
	}

	result, err := matching.Search(candidates, matching.SearchParams{SortKey: matching.SortByAidPeriodEnd}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"soon", "mid", "late"}, ids(result.Items))
}

func TestSearch_SortByQuantity(t *testing.T) {
	big := candidate(t, "big", "Rice 5kg", nil, matching.ItemOpen, 5)
	big.Item.Quantity = decimal.NewFromInt(40)
	small := candidate(t, "small", "Rice 5kg", nil, matching.ItemOpen, 5)
	small.Item.Quantity = decimal.NewFromInt(3)

	result, err := matching.Search([]matching.Candidate{big, small}, matching.SearchParams{
		SortKey: matching.SortByQuantity,
		SortDir: matching.Descending,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "small"}, ids(result.Items))
}

func TestSearch_UnknownSortKeyRejected(t *testing.T) {
	candidates := []matching.Candidate{
		candidate(t, "a", "Rice 5kg", nil, matching.ItemOpen, 5),
	}

	_, err := matching.Search(candidates, matching.SearchParams{SortKey: "color"}, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidSortField))

	var sortErr *engine.InvalidSortFieldError
	require.ErrorAs(t, err, &sortErr)
	assert.Equal(t, "color", sortErr.Key)
	assert.Contains(t, sortErr.Supported, matching.SortByName)
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestSearch_Pagination(t *testing.T) {
	candidates := make([]matching.Candidate, 0, 25)
	for i := 0; i < 25; i++ {
		candidates = append(candidates, candidate(t, fmt.Sprintf("item-%02d", i), "Rice 5kg", nil, matching.ItemOpen, 5))
	}

	// Defaults: page 1, size 10.
	result, err := matching.Search(candidates, matching.SearchParams{}, now)
	require.NoError(t, err)
	assert.Len(t, result.Items, 10)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, 25, result.Total)
	assert.Equal(t, "item-00", result.Items[0].Item.ID)

	// Last partial page.
	result, err = matching.Search(candidates, matching.SearchParams{Page: 3}, now)
	require.NoError(t, err)
	assert.Len(t, result.Items, 5)
	assert.Equal(t, "item-20", result.Items[0].Item.ID)

	// Overrun is an empty page, not an error.
	result, err = matching.Search(candidates, matching.SearchParams{Page: 4}, now)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 25, result.Total)
}
