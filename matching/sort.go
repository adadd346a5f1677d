package matching

// Explicit sort keys. The source system sorted by arbitrary field names via
// runtime reflection; here the supported set is enumerated and each key maps
// to a named comparator at compile time. Anything else is rejected with
// InvalidSortFieldError and surfaces as a bad request.

import (
	"sort"

	"github.com/aidlink/inventory-engine/engine"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

const (
	SortByName         = "name"
	SortByQuantity     = "quantity"
	SortByCreatedDate  = "createdDate"
	SortByAidPeriodEnd = "aidPeriodEnd" // derived from the schedule, not a stored field
)

var supportedSortKeys = []string{SortByName, SortByQuantity, SortByCreatedDate, SortByAidPeriodEnd}

// comparator reports whether a sorts before b in ascending order.
type comparator func(a, b RankedItem) bool

var comparators = map[string]comparator{
	SortByName: func(a, b RankedItem) bool {
		return a.Item.TemplateName < b.Item.TemplateName
	},
	SortByQuantity: func(a, b RankedItem) bool {
		return a.Item.Quantity.LessThan(b.Item.Quantity)
	},
	SortByCreatedDate: func(a, b RankedItem) bool {
		return a.Item.CreatedAt.Before(b.Item.CreatedAt)
	},
	SortByAidPeriodEnd: func(a, b RankedItem) bool {
		return a.AidPeriodEnd.Before(b.AidPeriodEnd)
	},
}

// sortByKey orders items by the named comparator, or fails with
// *InvalidSortFieldError for a key outside the supported set.
func sortByKey(items []RankedItem, key string, dir SortDirection) error {
	less, ok := comparators[key]
	if !ok {
		return &engine.InvalidSortFieldError{Key: key, Supported: supportedSortKeys}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if dir == Descending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
	return nil
}

// sortByRelevance orders by descending accumulated score. Ties are left in
// input order; the scoring alone implies no secondary key.
func sortByRelevance(items []RankedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
