package catalogue

import (
	"context"
	"time"
)

// Bot drives one browser session through a postcode's catalogue. A Bot owns
// its session exclusively; no other goroutine may drive it concurrently.
type Bot interface {
	LandFirstPage(ctx context.Context, url string) error
	EnterPostcode(ctx context.Context, postcode string) error
	SelectFirstPostcodeOption(ctx context.Context) error
	OpenCatalogue(ctx context.Context) error
	CategoryList(ctx context.Context) []string
	OpenCategory(ctx context.Context, name string) bool
	ExtractCategory(ctx context.Context, name string) CategoryResult
	Close()
}

// BotFactory constructs a fresh Bot for one postcode job.
type BotFactory func(ctx context.Context, postcode string) (Bot, error)

// RecordStore persists normalized catalogue rows. Put must be idempotent per
// (postcode, category, product_key) so retried writes converge.
type RecordStore interface {
	PutRow(ctx context.Context, row Row) error
}

// PostcodeSet is the append-only set of postcodes ever seen, plus the
// bookkeeping the staleness scheduler reads.
type PostcodeSet interface {
	// RecordIfNew inserts the postcode and reports whether it was new.
	// Check-then-insert is atomic per postcode.
	RecordIfNew(ctx context.Context, postcode string) (bool, error)
	ListAll(ctx context.Context) ([]string, error)
	// LastScanCompleted returns the zero time when no full scan has run.
	LastScanCompleted(ctx context.Context) (time.Time, error)
	MarkScanCompleted(ctx context.Context, at time.Time) error
}

// RequestStore persists user-submitted scrape requests.
type RequestStore interface {
	Create(ctx context.Context, req Request) error
	List(ctx context.Context) ([]Request, error)
	Delete(ctx context.Context, requestID string) error
	Update(ctx context.Context, requestID string, upd RequestUpdate) error
}

// Queue provides enqueue/dequeue semantics for scan jobs.
type Queue interface {
	Enqueue(ctx context.Context, job ScanJob) error
	Dequeue(ctx context.Context) (ScanJob, error)
}

// Publisher pushes scan summaries to Pub/Sub (or similar), fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ChangeNotifier delivers a change event into the feed. The request store
// calls it after each successful write.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, ev ChangeEvent) error
}

// BlobStore writes diagnostic artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Hasher computes digests used to name snapshot blobs.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
