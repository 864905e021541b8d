package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

var dbSeq int

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbSeq++
	dbURL := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", dbSeq)
	repo, err := NewSQLiteRepository(dbURL)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	return repo
}

func mustInsert(t *testing.T, repo *SQLiteRepository, slug, target string, permanent bool, createdAt time.Time) *domain.Link {
	t.Helper()
	link := &domain.Link{
		Slug:        slug,
		TargetURL:   target,
		IsPermanent: permanent,
		CreatedAt:   createdAt,
	}
	if err := repo.Insert(context.Background(), link); err != nil {
		t.Fatalf("insert %s: %v", slug, err)
	}
	return link
}

func mustClick(t *testing.T, repo *SQLiteRepository, linkID int64, ts time.Time) {
	t.Helper()
	err := repo.RecordClick(context.Background(), &domain.Click{LinkID: linkID, TS: ts})
	if err != nil {
		t.Fatalf("click link %d at %s: %v", linkID, ts, err)
	}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestInsertAndGetBySlug(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	link := &domain.Link{
		Slug:        "Ab3xY9",
		TargetURL:   "https://example.com/page",
		IsPermanent: true,
		CreatedAt:   created,
		CreatedIP:   "10.0.0.1",
	}
	if err := repo.Insert(ctx, link); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if link.ID == 0 {
		t.Fatal("Insert did not assign an ID")
	}

	got, err := repo.GetBySlug(ctx, "Ab3xY9")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got == nil {
		t.Fatal("expected a hit")
	}
	if got.TargetURL != link.TargetURL || !got.IsPermanent || got.CreatedIP != "10.0.0.1" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at mismatch: got %s want %s", got.CreatedAt, created)
	}

	// Slug matching is case-sensitive.
	got, err = repo.GetBySlug(ctx, "ab3xy9")
	if err != nil {
		t.Fatalf("GetBySlug lowercase: %v", err)
	}
	if got != nil {
		t.Error("slug lookup must be case-sensitive")
	}

	got, err = repo.GetBySlug(ctx, "missing")
	if err != nil || got != nil {
		t.Errorf("miss should be (nil, nil), got (%v, %v)", got, err)
	}
}

func TestInsertDuplicateSlug(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustInsert(t, repo, "abc123", "https://example.com/1", true, time.Now().UTC())

	err := repo.Insert(ctx, &domain.Link{
		Slug:      "abc123",
		TargetURL: "https://example.com/2",
		CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrSlugConflict) {
		t.Fatalf("expected ErrSlugConflict, got %v", err)
	}

	// The loser must not have changed the winner's row.
	got, _ := repo.GetBySlug(ctx, "abc123")
	if got == nil || got.TargetURL != "https://example.com/1" {
		t.Errorf("winner row disturbed: %+v", got)
	}
}

func TestRecordClickForeignKey(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.RecordClick(context.Background(), &domain.Click{LinkID: 9999, TS: time.Now().UTC()})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("click against missing link: expected ErrNotFound, got %v", err)
	}
}

func TestCountClicksDateBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := mustInsert(t, repo, "bnd", "https://example.com", false, time.Now().UTC())
	mustClick(t, repo, link.ID, time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC))

	cases := []struct {
		name string
		r    domain.DateRange
		want int64
	}{
		{"no bounds", domain.DateRange{}, 1},
		{"end on the click's day includes it", domain.DateRange{End: day(2024, 1, 5)}, 1},
		{"end the day before excludes it", domain.DateRange{End: day(2024, 1, 4)}, 0},
		{"start on the click's day includes it", domain.DateRange{Start: day(2024, 1, 5)}, 1},
		{"start the day after excludes it", domain.DateRange{Start: day(2024, 1, 6)}, 0},
		{"tight range equal to the day", domain.DateRange{Start: day(2024, 1, 5), End: day(2024, 1, 5)}, 1},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.CountClicks(ctx, link.ID, tt.r)
			if err != nil {
				t.Fatalf("CountClicks: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClicksPerDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := mustInsert(t, repo, "hist", "https://example.com", false, time.Now().UTC())
	other := mustInsert(t, repo, "other", "https://example.org", false, time.Now().UTC())

	mustClick(t, repo, link.ID, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC))
	mustClick(t, repo, link.ID, time.Date(2024, 2, 1, 20, 0, 0, 0, time.UTC))
	mustClick(t, repo, link.ID, time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC))
	mustClick(t, repo, other.ID, time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC))

	got, err := repo.ClicksPerDay(ctx, link.ID, domain.DateRange{})
	if err != nil {
		t.Fatalf("ClicksPerDay: %v", err)
	}

	want := []domain.DayCount{
		{Day: "2024-02-01", Clicks: 2},
		{Day: "2024-02-03", Clicks: 1}, // sparse: no 2024-02-02 bucket
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTotalsByLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := mustInsert(t, repo, "older1", "https://alpha.example.com", true,
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	newer := mustInsert(t, repo, "newer1", "https://beta.example.com", false,
		time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	zero := mustInsert(t, repo, "quiet1", "https://gamma.example.com", false,
		time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC))

	mustClick(t, repo, older.ID, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	mustClick(t, repo, older.ID, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	mustClick(t, repo, newer.ID, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	rows, err := repo.TotalsByLink(ctx, domain.LinkFilter{Limit: 10})
	if err != nil {
		t.Fatalf("TotalsByLink: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (zero-click link included), got %d", len(rows))
	}
	// Newest link first.
	if rows[0].ID != zero.ID || rows[1].ID != newer.ID || rows[2].ID != older.ID {
		t.Errorf("wrong order: %v, %v, %v", rows[0].Slug, rows[1].Slug, rows[2].Slug)
	}
	if rows[0].Clicks != 0 || rows[1].Clicks != 1 || rows[2].Clicks != 2 {
		t.Errorf("wrong counts: %d, %d, %d", rows[0].Clicks, rows[1].Clicks, rows[2].Clicks)
	}

	// A range keeps every link but only counts clicks inside it.
	rows, err = repo.TotalsByLink(ctx, domain.LinkFilter{
		Range: domain.DateRange{Start: day(2024, 1, 14), End: day(2024, 1, 31)},
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("TotalsByLink ranged: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("range must not drop links, got %d rows", len(rows))
	}
	if rows[2].ID != older.ID || rows[2].Clicks != 1 {
		t.Errorf("expected 1 in-range click for %s, got %d", rows[2].Slug, rows[2].Clicks)
	}

	// Substring filter over slug and target_url.
	rows, err = repo.TotalsByLink(ctx, domain.LinkFilter{Q: "beta", Limit: 10})
	if err != nil {
		t.Fatalf("TotalsByLink q: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != newer.ID {
		t.Errorf("q=beta should match only newer1: %+v", rows)
	}

	rows, err = repo.TotalsByLink(ctx, domain.LinkFilter{Q: "quiet", Limit: 10})
	if err != nil {
		t.Fatalf("TotalsByLink q slug: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != zero.ID {
		t.Errorf("q=quiet should match the slug: %+v", rows)
	}
}

func TestTotalsByLinkPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustInsert(t, repo, fmt.Sprintf("page%d", i), "https://example.com", false,
			base.Add(time.Duration(i)*time.Hour))
	}

	count, err := repo.CountLinks(ctx, "")
	if err != nil {
		t.Fatalf("CountLinks: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 links, got %d", count)
	}

	var all []string
	seen := map[string]bool{}
	for offset := 0; offset < 5; offset += 2 {
		rows, err := repo.TotalsByLink(ctx, domain.LinkFilter{Limit: 2, Offset: offset})
		if err != nil {
			t.Fatalf("page at offset %d: %v", offset, err)
		}
		for _, row := range rows {
			if seen[row.Slug] {
				t.Errorf("slug %s appeared on two pages", row.Slug)
			}
			seen[row.Slug] = true
			all = append(all, row.Slug)
		}
	}

	want := []string{"page4", "page3", "page2", "page1", "page0"}
	if len(all) != len(want) {
		t.Fatalf("concatenated pages: got %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("concatenated pages out of order: got %v, want %v", all, want)
		}
	}
}

func TestCountLinksQIgnoresDates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustInsert(t, repo, "aaa111", "https://foo.example.com", false, time.Now().UTC())
	mustInsert(t, repo, "bbb222", "https://bar.example.com", false, time.Now().UTC())

	count, err := repo.CountLinks(ctx, "foo")
	if err != nil {
		t.Fatalf("CountLinks: %v", err)
	}
	if count != 1 {
		t.Errorf("q=foo should count 1, got %d", count)
	}
}

func TestRecentClicks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := mustInsert(t, repo, "rec", "https://example.com", false, time.Now().UTC())
	for i := 0; i < 4; i++ {
		err := repo.RecordClick(ctx, &domain.Click{
			LinkID:    link.ID,
			TS:        time.Date(2024, 3, 1, 10+i, 0, 0, 0, time.UTC),
			IP:        fmt.Sprintf("10.0.0.%d", i),
			UserAgent: "agent",
			Referrer:  "https://ref.example",
		})
		if err != nil {
			t.Fatalf("click %d: %v", i, err)
		}
	}

	got, err := repo.RecentClicks(ctx, link.ID, domain.DateRange{}, 3)
	if err != nil {
		t.Fatalf("RecentClicks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit not applied: got %d clicks", len(got))
	}
	if got[0].IP != "10.0.0.3" || got[2].IP != "10.0.0.1" {
		t.Errorf("expected newest first: %+v", got)
	}
	if got[0].UserAgent != "agent" || got[0].Referrer != "https://ref.example" {
		t.Errorf("click fields lost: %+v", got[0])
	}
}

func TestDump(t *testing.T) {
	repo := newTestRepo(t)

	mustInsert(t, repo, "dump01", "https://example.com/1", true, time.Now().UTC())
	mustInsert(t, repo, "dump02", "https://example.com/2", false, time.Now().UTC())

	links, err := repo.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links in dump, got %d", len(links))
	}
	if links[0].Slug != "dump01" || links[1].Slug != "dump02" {
		t.Errorf("dump order by id expected: %+v", links)
	}
}
