package ports

import (
	"context"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

// LinkRepository defines storage operations for links and their clicks.
// Lookups report a miss as (nil, nil); constraint violations come back as
// the matching domain error (ErrSlugConflict for a duplicate slug insert,
// ErrNotFound for a click against a missing link).
type LinkRepository interface {
	Insert(ctx context.Context, link *domain.Link) error
	GetBySlug(ctx context.Context, slug string) (*domain.Link, error)
	RecordClick(ctx context.Context, click *domain.Click) error

	// Analytics (read-only over append-only data)
	TotalsByLink(ctx context.Context, f domain.LinkFilter) ([]domain.LinkTotals, error)
	CountLinks(ctx context.Context, q string) (int64, error)
	CountClicks(ctx context.Context, linkID int64, r domain.DateRange) (int64, error)
	ClicksPerDay(ctx context.Context, linkID int64, r domain.DateRange) ([]domain.DayCount, error)
	RecentClicks(ctx context.Context, linkID int64, r domain.DateRange, limit int) ([]domain.Click, error)

	Dump(ctx context.Context) ([]domain.Link, error) // For export/migration
}

// LinkService defines the business logic operations exposed to the HTTP and
// CLI layers.
type LinkService interface {
	CreateLink(ctx context.Context, targetURL string, isPermanent bool, requestedSlug, createdIP string) (*domain.CreatedLink, error)
	ResolveAndRecord(ctx context.Context, slug, ip, userAgent, referrer string) (*domain.RedirectDecision, error)
	GetLinkAnalytics(ctx context.Context, slug string, r domain.DateRange, aggregate string) (*domain.LinkAnalytics, error)
	ListLinks(ctx context.Context, r domain.DateRange, q string, page, pageSize int) (*domain.LinkPage, error)
	RecentClicks(ctx context.Context, slug string, r domain.DateRange, limit int) ([]domain.Click, error)
}
