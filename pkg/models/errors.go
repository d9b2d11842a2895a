package models

import "errors"

// Error taxonomy surfaced to callers of the studio. Remote failures are
// classified into exactly one of these categories at the session boundary.
var (
	// ErrRateLimited: upstream quota exhausted after retries. The user should
	// wait or reduce the batch size.
	ErrRateLimited = errors.New("rate limited by generative API")

	// ErrContentRejected: the upstream safety filter blocked the request.
	ErrContentRejected = errors.New("request rejected by content filter")

	// ErrUpstream: any other remote failure (network, malformed response,
	// missing artifact in the response).
	ErrUpstream = errors.New("generative API request failed")

	// ErrNoArtifacts: a batch completed with zero successful results. Partial
	// success is expected; only total failure is fatal.
	ErrNoArtifacts = errors.New("no images were produced")

	// ErrPersistenceFailed: a local storage write failed. The in-memory
	// operation still completed; only durability is lost.
	ErrPersistenceFailed = errors.New("failed to persist to library")

	// ErrNotFound: a referenced design or folder does not exist.
	ErrNotFound = errors.New("not found")
)

// Category names the user-facing error class of a classified failure.
type Category string

const (
	CategoryRateLimited     Category = "rate_limited"
	CategoryContentRejected Category = "content_rejected"
	CategoryUpstream        Category = "upstream"
	CategoryNoArtifacts     Category = "no_artifacts"
	CategoryPersistence     Category = "persistence_failed"
	CategoryNotFound        Category = "not_found"
)

// Categorize maps a classified error to its category. Unrecognized errors
// fall back to the generic upstream category.
func Categorize(err error) Category {
	switch {
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrContentRejected):
		return CategoryContentRejected
	case errors.Is(err, ErrNoArtifacts):
		return CategoryNoArtifacts
	case errors.Is(err, ErrPersistenceFailed):
		return CategoryPersistence
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryUpstream
	}
}

// Advice returns the guidance shown to the user for a category.
func (c Category) Advice() string {
	switch c {
	case CategoryRateLimited:
		return "API quota exhausted; try again later or reduce the batch size"
	case CategoryContentRejected:
		return "the content filter blocked this request; modify your inputs"
	case CategoryNoArtifacts:
		return "every generation attempt failed; try again"
	case CategoryPersistence:
		return "the design could not be saved locally; it is still available in memory"
	case CategoryNotFound:
		return "the referenced design or folder does not exist"
	default:
		return "the request failed; see the error message"
	}
}
