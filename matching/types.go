/*
Package matching ranks outstanding aid requests so limited inventory is
routed to the most time-critical, best-matching requests first.

PURPOSE:
  Branch-side listing calls hand this package a candidate set of aid items
  (each carrying its parent request's schedule) and get back a filtered,
  scored, sorted, paginated result:

    eligibility -> urgency filter -> keyword scoring -> sort -> paginate

KEY CONCEPTS IN THIS FILE (types.go):
  - AidItem: One requested item within an aid request
  - Candidate: An item paired with its parent request's schedule
  - RankedItem / PagedResult: The search output shapes

DESIGN PRINCIPLES:
  1. Pure: Search never touches storage; callers fetch candidates first
  2. Explicit now: Urgency and eligibility are functions of injected time
  3. Ephemeral scores: MatchScore-style state lives only inside one pass

SEE ALSO:
  - score.go: Keyword scoring rules
  - sort.go: The enumerated sort keys
  - search.go: The full pipeline
*/
package matching

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aidlink/inventory-engine/engine"
)

// ItemStatus is the fulfillment state of a requested aid item. Only
// accepted/open items are searchable.
type ItemStatus string

const (
	ItemOpen      ItemStatus = "open" // accepted, awaiting fulfillment
	ItemFulfilled ItemStatus = "fulfilled"
	ItemDeclined  ItemStatus = "declined"
)

// AidItem is a single requested item inside an aid request.
type AidItem struct {
	ID           string
	RequestID    string
	BranchID     engine.BranchID
	TemplateName string   // catalog template name, e.g. "Rice 5kg"
	Attributes   []string // free-form attribute values, e.g. "White", "Organic"
	Quantity     decimal.Decimal
	Status       ItemStatus
	CreatedAt    time.Time
}

// Candidate pairs an item with its parent request's schedule. The schedule
// drives both eligibility (at least one upcoming window) and urgency.
type Candidate struct {
	Item    AidItem
	Windows []engine.ScheduledWindow
}

// RankedItem is one search hit with its derived, never-persisted fields.
type RankedItem struct {
	Item         AidItem
	Urgency      engine.Urgency
	Score        int
	AidPeriodEnd time.Time
}

// PagedResult is one page of ranked items. An out-of-range page is an empty
// page, not an error.
type PagedResult struct {
	Items    []RankedItem
	Page     int
	PageSize int
	Total    int // eligible items before pagination
}
