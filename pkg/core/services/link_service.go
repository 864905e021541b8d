package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

type LinkService struct {
	repo          ports.LinkRepository
	baseURL       string
	slugLen       int
	redirectCache int // seconds
}

func NewLinkService(repo ports.LinkRepository, baseURL string, slugLen, redirectCache int) *LinkService {
	return &LinkService{
		repo:          repo,
		baseURL:       strings.TrimRight(baseURL, "/"),
		slugLen:       slugLen,
		redirectCache: redirectCache,
	}
}

// CreateLink validates the target, allocates a slug and inserts the link.
// With a requested slug a conflict is terminal (domain.ErrSlugConflict);
// with a random one the allocator retries with fresh candidates, treating
// the store's uniqueness constraint as the single authority so two racing
// creators on the same candidate can never both win.
func (s *LinkService) CreateLink(ctx context.Context, targetURL string, isPermanent bool, requestedSlug, createdIP string) (*domain.CreatedLink, error) {
	targetURL = strings.TrimSpace(targetURL)
	if err := s.validateTargetURL(targetURL); err != nil {
		return nil, err
	}

	link := &domain.Link{
		TargetURL:   targetURL,
		IsPermanent: isPermanent,
		CreatedAt:   time.Now().UTC(),
		CreatedIP:   createdIP,
	}

	if requestedSlug != "" {
		if err := validateRequestedSlug(requestedSlug, s.slugLen*2); err != nil {
			return nil, err
		}
		link.Slug = requestedSlug
		if err := s.repo.Insert(ctx, link); err != nil {
			return nil, err
		}
	} else {
		allocated := false
		for attempt := 0; attempt < maxAllocAttempts; attempt++ {
			candidate, err := randomSlug(s.slugLen)
			if err != nil {
				return nil, err
			}
			link.Slug = candidate
			err = s.repo.Insert(ctx, link)
			if err == nil {
				allocated = true
				break
			}
			if errors.Is(err, domain.ErrSlugConflict) {
				continue
			}
			return nil, err
		}
		if !allocated {
			return nil, domain.ErrAllocationExhausted
		}
	}

	return &domain.CreatedLink{
		Slug:        link.Slug,
		ShortURL:    s.shortURL(link.Slug),
		TargetURL:   link.TargetURL,
		IsPermanent: link.IsPermanent,
	}, nil
}

// ResolveAndRecord looks the slug up, records the click and returns the
// redirect decision. The click insert is synchronous: if it fails the
// request fails rather than redirecting with an unrecorded click. A click
// committed just before the response fails to send is an accepted
// over-count.
func (s *LinkService) ResolveAndRecord(ctx context.Context, slug, ip, userAgent, referrer string) (*domain.RedirectDecision, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}

	click := &domain.Click{
		LinkID:    link.ID,
		TS:        time.Now().UTC(),
		IP:        ip,
		UserAgent: userAgent,
		Referrer:  referrer,
	}
	if err := s.repo.RecordClick(ctx, click); err != nil {
		return nil, err
	}

	return s.decide(link), nil
}

// decide picks 301 + public caching for permanent links, 302 with caching
// defeated (including legacy Pragma/Expires for intermediaries) otherwise.
// Caching a 302 risks stale redirects if routing later changes; a 301 is
// contractually permanent per HTTP semantics.
func (s *LinkService) decide(link *domain.Link) *domain.RedirectDecision {
	d := &domain.RedirectDecision{
		Location: link.TargetURL,
		Headers:  make(map[string]string),
	}
	if link.IsPermanent {
		d.Status = 301
		d.Headers["Cache-Control"] = fmt.Sprintf("public, max-age=%d", s.redirectCache)
	} else {
		d.Status = 302
		d.Headers["Cache-Control"] = "no-store, no-cache, must-revalidate, max-age=0"
		d.Headers["Pragma"] = "no-cache"
		d.Headers["Expires"] = "0"
	}
	return d
}

// GetLinkAnalytics returns click totals for a slug within the optional
// range. With aggregate == "day" it also returns the sparse per-day
// histogram, and the total is the sum over those buckets.
func (s *LinkService) GetLinkAnalytics(ctx context.Context, slug string, r domain.DateRange, aggregate string) (*domain.LinkAnalytics, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}

	out := &domain.LinkAnalytics{
		Slug:        link.Slug,
		ShortURL:    s.shortURL(link.Slug),
		TargetURL:   link.TargetURL,
		IsPermanent: link.IsPermanent,
		CreatedAt:   link.CreatedAt,
	}

	if aggregate == "day" {
		perDay, err := s.repo.ClicksPerDay(ctx, link.ID, r)
		if err != nil {
			return nil, err
		}
		out.PerDay = perDay
		for _, d := range perDay {
			out.TotalClicks += d.Clicks
		}
		return out, nil
	}

	total, err := s.repo.CountClicks(ctx, link.ID, r)
	if err != nil {
		return nil, err
	}
	out.TotalClicks = total
	return out, nil
}

// ListLinks pages through all links (zero-click ones included) with click
// totals in the range. The page count comes from CountLinks, which applies
// only the q filter: the date range filters clicks, not link existence.
func (s *LinkService) ListLinks(ctx context.Context, r domain.DateRange, q string, page, pageSize int) (*domain.LinkPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, err := s.repo.TotalsByLink(ctx, domain.LinkFilter{
		Range:  r,
		Q:      q,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountLinks(ctx, q)
	if err != nil {
		return nil, err
	}

	return &domain.LinkPage{
		Rows:       rows,
		Page:       page,
		PageSize:   pageSize,
		TotalLinks: count,
		TotalPages: int((count + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// RecentClicks returns the newest clicks for a slug within the range.
func (s *LinkService) RecentClicks(ctx context.Context, slug string, r domain.DateRange, limit int) ([]domain.Click, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.RecentClicks(ctx, link.ID, r, limit)
}

func (s *LinkService) shortURL(slug string) string {
	return s.baseURL + "/" + slug
}

// validateTargetURL enforces the creation rule: non-empty, at most 2048
// characters, http(s) scheme, non-empty host, and never the service's own
// base host (anti-loop guard).
func (s *LinkService) validateTargetURL(raw string) error {
	if raw == "" || len(raw) > 2048 {
		return domain.ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return domain.ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.ErrInvalidURL
	}
	if base, err := url.Parse(s.baseURL); err == nil && base.Host != "" {
		if strings.EqualFold(u.Host, base.Host) || strings.HasPrefix(raw, s.baseURL) {
			return domain.ErrLoopURL
		}
	}
	return nil
}

var _ ports.LinkService = (*LinkService)(nil)
