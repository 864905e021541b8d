package domain

import "time"

// Click is a single recorded redirect. Clicks are append-only and always
// reference an existing Link; ip/user_agent/referrer are diagnostic
// free-text, never trusted for security decisions.
type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	TS        time.Time `json:"ts"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// DateRange bounds click queries by calendar day, both ends optional and
// inclusive. The effective predicate is ts >= Start 00:00:00 AND
// ts < End + 1 day.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// LinkFilter enumerates the totals-by-link query options explicitly so the
// repository binds parameters instead of assembling clause fragments.
type LinkFilter struct {
	Range  DateRange
	Q      string // substring match against slug or target_url
	Limit  int
	Offset int
}

// LinkTotals is one row of the totals-by-link listing: a link plus its click
// count within the requested range (zero-click links included).
type LinkTotals struct {
	Link
	Clicks int64 `json:"clicks"`
}

// DayCount is one bucket of a per-day click histogram. Day is YYYY-MM-DD;
// days with zero clicks are not emitted.
type DayCount struct {
	Day    string `json:"day"`
	Clicks int64  `json:"clicks"`
}

// LinkAnalytics aggregates a single link's click activity.
type LinkAnalytics struct {
	Slug        string     `json:"slug"`
	ShortURL    string     `json:"short_url"`
	TargetURL   string     `json:"target_url"`
	IsPermanent bool       `json:"is_permanent"`
	CreatedAt   time.Time  `json:"created_at"`
	TotalClicks int64      `json:"clicks_total"`
	PerDay      []DayCount `json:"clicks_per_day,omitempty"`
}

// LinkPage is one page of the links listing.
type LinkPage struct {
	Rows       []LinkTotals `json:"rows"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalLinks int64        `json:"total_links"`
	TotalPages int          `json:"total_pages"`
}
