package engine

// MessageCatalog resolves user-facing text by key. The engine never hardcodes
// display strings — only error kinds and message keys — so deployments can
// localize or rebrand without touching core logic.
type MessageCatalog interface {
	// Lookup returns the text for a key, or the key itself when unknown so a
	// missing entry degrades visibly instead of silently dropping a notice.
	Lookup(key string) string
}

// Message keys emitted by the engine.
const (
	MsgExpiringTomorrow = "sweep.expiring_tomorrow" // %d lots expire tomorrow unreserved
	MsgExpiredToday     = "sweep.expired_today"     // %d lots expired today
	MsgTryAgain         = "error.try_again"
	MsgBadRequest       = "error.bad_request"
	MsgInsufficient     = "error.insufficient_availability"
)

// StaticCatalog is a map-backed catalog with the default English texts.
type StaticCatalog map[string]string

func (c StaticCatalog) Lookup(key string) string {
	if text, ok := c[key]; ok {
		return text
	}
	return key
}

// DefaultCatalog returns the built-in message set.
func DefaultCatalog() StaticCatalog {
	return StaticCatalog{
		MsgExpiringTomorrow: "%d stock lot(s) at your branch expire tomorrow with no pending reservation and will go to waste",
		MsgExpiredToday:     "%d stock lot(s) at your branch expired today and were retired from inventory",
		MsgTryAgain:         "something went wrong, please try again",
		MsgBadRequest:       "the request could not be processed",
		MsgInsufficient:     "not enough stock is available for the requested window",
	}
}
