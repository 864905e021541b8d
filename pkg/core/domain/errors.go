package domain

import "errors"

// Sentinel errors returned by the core. Handlers map them onto HTTP statuses
// with errors.Is; nothing here is retried automatically except the slug
// allocator's own bounded retry on ErrSlugConflict.
var (
	// ErrNotFound reports an unknown slug. A normal outcome, not a fault.
	ErrNotFound = errors.New("link not found")

	// ErrSlugConflict reports that a slug is already taken. Terminal for
	// user-chosen slugs; the allocator retries with a fresh candidate for
	// random ones.
	ErrSlugConflict = errors.New("slug already taken")

	// ErrAllocationExhausted reports that the allocator gave up after its
	// retry bound. Safe for the caller to retry the whole operation.
	ErrAllocationExhausted = errors.New("failed to allocate a unique slug")

	// ErrInvalidURL reports a target URL that is empty, too long, not
	// http(s), or missing a host.
	ErrInvalidURL = errors.New("invalid target url")

	// ErrLoopURL reports a target pointing back at the service's own host.
	ErrLoopURL = errors.New("target url points at this service")

	// ErrInvalidSlug reports a requested slug outside the base62 alphabet
	// or the allowed length.
	ErrInvalidSlug = errors.New("invalid slug")
)
