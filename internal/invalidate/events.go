package invalidate

import "time"

// Event tells subscribed clients which cached views are stale after a
// mutation. Scopes are invalidation keys, not payloads: the client is
// expected to refetch, never to patch local state from the event.
type Event struct {
	Type   string    `json:"type"` // always "invalidate"
	UserID string    `json:"user_id"`
	Scopes []string  `json:"scopes"`
	At     time.Time `json:"at"`
}

// ScopeUserStats marks the owner's dashboard aggregates stale.
const ScopeUserStats = "user-stats"

// ScopeSeriesList marks the series listing stale.
const ScopeSeriesList = "series-list"

// ScopeSeries marks one series (and its volumes) stale.
func ScopeSeries(seriesID string) string {
	return "series:" + seriesID
}

func NewEvent(userID string, scopes ...string) Event {
	return Event{
		Type:   "invalidate",
		UserID: userID,
		Scopes: scopes,
		At:     time.Now().UTC(),
	}
}
