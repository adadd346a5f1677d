/*
dto.go - Request/response data structures

Wire shapes only. Parsing into domain types (and the validation that goes
with it) lives in the handlers; quantities travel as JSON numbers and are
converted to decimals at the boundary.
*/
package api

// WindowDTO is one schedule entry on the wire.
type WindowDTO struct {
	Day       string `json:"day"`       // "2006-01-02"
	StartTime string `json:"startTime"` // "15:04"
	EndTime   string `json:"endTime"`
}

// AvailabilityRequest is the body of single and batch availability calls.
type AvailabilityRequest struct {
	ItemIDs []string    `json:"itemIds,omitempty"` // batch form
	Windows []WindowDTO `json:"windows"`
}

// AvailabilityResponse is one computed availability answer.
type AvailabilityResponse struct {
	ItemID           string  `json:"itemId"`
	Available        float64 `json:"available"`
	WindowEnd        string  `json:"windowEnd,omitempty"`
	NoUpcomingWindow bool    `json:"noUpcomingWindow,omitempty"`
}

// ReserveRequest commits a reservation against an availability answer.
type ReserveRequest struct {
	ItemID   string      `json:"itemId"`
	Quantity float64     `json:"quantity"`
	Windows  []WindowDTO `json:"windows"`
}

// ReserveResponse reports the created transfer.
type ReserveResponse struct {
	TransferID string  `json:"transferId"`
	ItemID     string  `json:"itemId"`
	BranchID   string  `json:"branchId"`
	Quantity   float64 `json:"quantity"`
	Status     string  `json:"status"`
}

// TransferStatusRequest moves a transfer to a terminal state.
type TransferStatusRequest struct {
	Status string `json:"status"` // fulfilled | cancelled | rejected
}

// AddLotRequest records a stock intake.
type AddLotRequest struct {
	LotID          string  `json:"lotId,omitempty"`
	ItemID         string  `json:"itemId"`
	Quantity       float64 `json:"quantity"`
	ExpirationDate string  `json:"expirationDate"` // "2006-01-02"
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	ItemID       string   `json:"itemId"`
	RequestID    string   `json:"requestId"`
	TemplateName string   `json:"templateName"`
	Attributes   []string `json:"attributes"`
	Quantity     float64  `json:"quantity"`
	Urgency      string   `json:"urgency"`
	Score        int      `json:"score"`
	AidPeriodEnd string   `json:"aidPeriodEnd"`
}

// SearchResponse is one page of hits.
type SearchResponse struct {
	Items    []SearchResultItem `json:"items"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Total    int                `json:"total"`
}

// SweepResponse summarizes a manually triggered sweep.
type SweepResponse struct {
	Branches       int      `json:"branches"`
	Warned         int      `json:"warned"`
	Retired        int      `json:"retired"`
	FailedBranches []string `json:"failedBranches,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
