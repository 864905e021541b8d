package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestCheckSequence(t *testing.T) {
	l := New(3, 60*time.Second)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if d := l.Check("api-create", "1.2.3.4"); !d.Allowed {
			t.Fatalf("call %d: expected Allowed", i+1)
		}
	}

	d := l.Check("api-create", "1.2.3.4")
	if d.Allowed {
		t.Fatal("call 4: expected Exceeded")
	}
	if d.RetryAfter != 60 {
		t.Errorf("expected RetryAfter 60, got %d", d.RetryAfter)
	}
}

func TestRetryAfterShrinksWithAge(t *testing.T) {
	l := New(1, 60*time.Second)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	if d := l.Check("s", "ip"); !d.Allowed {
		t.Fatal("first call should be allowed")
	}

	now = base.Add(45 * time.Second)
	d := l.Check("s", "ip")
	if d.Allowed {
		t.Fatal("expected Exceeded inside window")
	}
	if d.RetryAfter != 15 {
		t.Errorf("expected RetryAfter 15, got %d", d.RetryAfter)
	}
}

func TestWindowExpiry(t *testing.T) {
	l := New(3, 60*time.Second)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		l.Check("s", "ip")
	}
	if d := l.Check("s", "ip"); d.Allowed {
		t.Fatal("expected Exceeded before window passes")
	}

	now = base.Add(61 * time.Second)
	if d := l.Check("s", "ip"); !d.Allowed {
		t.Fatal("expected Allowed after window passed")
	}
	if got := l.Len("s", "ip"); got != 1 {
		t.Errorf("expected 1 live event after eviction, got %d", got)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 60*time.Second)
	l.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	if d := l.Check("api-create", "1.1.1.1"); !d.Allowed {
		t.Fatal("first identity should be allowed")
	}
	if d := l.Check("api-create", "2.2.2.2"); !d.Allowed {
		t.Fatal("second identity must not share the first's bucket")
	}
	if d := l.Check("api-get", "1.1.1.1"); !d.Allowed {
		t.Fatal("different scope must not share the bucket")
	}
	if d := l.Check("api-create", "1.1.1.1"); d.Allowed {
		t.Fatal("same key should now be exhausted")
	}
}

func TestConcurrentSameKey(t *testing.T) {
	const limit = 10
	l := New(limit, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("s", "ip").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("expected exactly %d allowed under contention, got %d", limit, allowed)
	}
}
