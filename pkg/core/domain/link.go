package domain

import "time"

// Link represents a shortened URL. Links are append-only: once created they
// are never mutated, and the slug stays unique for the lifetime of the store.
type Link struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	TargetURL   string    `json:"target_url"`
	IsPermanent bool      `json:"is_permanent"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedIP   string    `json:"created_ip,omitempty"`
}

// CreatedLink is the result of a successful CreateLink call.
type CreatedLink struct {
	Slug        string `json:"slug"`
	ShortURL    string `json:"short_url"`
	TargetURL   string `json:"target_url"`
	IsPermanent bool   `json:"is_permanent"`
}

// RedirectDecision tells the transport layer how to answer a resolved slug:
// 301 with public caching for permanent links, 302 with caching defeated
// for temporary ones.
type RedirectDecision struct {
	Status   int
	Location string
	Headers  map[string]string
}
