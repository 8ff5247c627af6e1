package bus

// ResultEvent carries a freshly published generation result of one session.
type ResultEvent struct {
	SessionID string `json:"session_id"`
	Revision  uint64 `json:"revision"`
	State     string `json:"state"`         // "error", "pending" or "ready"
	PNG       string `json:"png,omitempty"` // data URL
	SVG       string `json:"svg,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionEvent reports session lifecycle changes.
type SessionEvent struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"` // "opened" or "closed"
}
