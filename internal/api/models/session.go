package models

// Session is the response of opening a dashboard session.
type Session struct {
	ID        string       `json:"id"`
	Tab       string       `json:"tab"`
	Tabs      []string     `json:"tabs"`
	CreatedAt Timestamp    `json:"createdAt"`
	Links     SessionLinks `json:"links"`
}

// SessionLinks holds the URLs of a session's resources.
type SessionLinks struct {
	Self      string `json:"self"`
	Dashboard string `json:"dashboard"`
}

// RefetchResult is the response of re-triggering a domain.
type RefetchResult struct {
	Domain  string `json:"domain"`
	Started bool   `json:"started"`
}
