// Package model holds the catalog data model shared by every DocBro
// component: shelves, boxes, memberships, crawl sessions, pages and chunks
// (spec §3). Types here are plain structs with no behavior beyond the
// invariants that are cheap to check locally; the authoritative invariant
// checks (uniqueness, protected-shelf, etc.) live in internal/catalog and
// internal/metastore.
package model

import (
	"time"

	"github.com/behemotion/docbro/internal/errs"
)

// BoxType is the tagged variant discriminator for a Box's fill strategy.
type BoxType string

const (
	BoxTypeDrag BoxType = "drag"
	BoxTypeRag  BoxType = "rag"
	BoxTypeBag  BoxType = "bag"
)

func (t BoxType) Valid() bool {
	switch t {
	case BoxTypeDrag, BoxTypeRag, BoxTypeBag:
		return true
	default:
		return false
	}
}

// Shelf is a named collection of boxes (spec §3 "Shelf").
type Shelf struct {
	ID             string
	Name           string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DefaultBoxType BoxType
	AutoFill       bool
	Tags           []string
	IsCurrent      bool
	Protected      bool
}

// ConfigurationState tracks whether a Box has been set up and filled.
type ConfigurationState struct {
	IsConfigured         bool
	SetupCompletedAt     *time.Time
	HasContent           bool
	ConfigurationVersion string
}

// DragConfig is the type-specific config for a "drag" (crawl) box.
type DragConfig struct {
	InitialURL      string
	MaxPages        int
	MaxDepth        int
	RateLimit       float64
	FollowExternal  bool
}

// RagConfig is the type-specific config for a "rag" (document) box.
type RagConfig struct {
	InitialPath   string
	ChunkSize     int
	ChunkOverlap  int
	Extensions    map[string]struct{}
	Recursive     bool
}

// BagConfig is the type-specific config for a "bag" (arbitrary file) box.
type BagConfig struct {
	InitialPath        string
	Patterns           []string
	Recursive          bool
	PreserveStructure  bool
}

// BoxConfig is the tagged-variant config attached to a Box, keyed by Type.
// Exactly one of Drag/Rag/Bag is meaningful, selected by the Box's Type.
type BoxConfig struct {
	Drag *DragConfig
	Rag  *RagConfig
	Bag  *BagConfig
}

// Validate enforces the per-type config bounds spec §3 requires "rejected
// at config time": drag's max_pages/max_depth/rate_limit, rag's
// chunk_size/chunk_overlap. A box whose config for its own type is absent
// (not yet set up by a wizard) is left for the caller to decide; Validate
// only checks the fields that are present.
func (c BoxConfig) Validate(boxType BoxType) error {
	switch boxType {
	case BoxTypeDrag:
		if c.Drag == nil {
			return nil
		}
		if c.Drag.MaxPages < 1 {
			return errs.New(errs.InvalidInput, "max_pages must be >= 1")
		}
		if c.Drag.MaxDepth < 0 {
			return errs.New(errs.InvalidInput, "max_depth must be >= 0")
		}
		if c.Drag.RateLimit <= 0 {
			return errs.New(errs.InvalidInput, "rate_limit must be > 0")
		}
	case BoxTypeRag:
		if c.Rag == nil {
			return nil
		}
		if c.Rag.ChunkSize < 100 || c.Rag.ChunkSize > 8000 {
			return errs.New(errs.InvalidInput, "chunk_size must be between 100 and 8000")
		}
		if c.Rag.ChunkOverlap < 0 || c.Rag.ChunkOverlap >= c.Rag.ChunkSize/2 {
			return errs.New(errs.InvalidInput, "chunk_overlap must be >= 0 and < chunk_size/2")
		}
	case BoxTypeBag:
		// bag config (patterns, recursive, preserve_structure) has no
		// numeric bounds to enforce.
	}
	return nil
}

// Box is a content unit of a typed variant (spec §3 "Box").
type Box struct {
	ID                  string
	Name                string
	Type                BoxType
	Description         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Config              BoxConfig
	ConfigurationState  ConfigurationState
}

// Membership links a Box to a Shelf; carries no ordering (spec §3).
type Membership struct {
	ShelfID string
	BoxID   string
}

// CrawlStatus is the state-machine status of a CrawlSession (spec §4.F).
type CrawlStatus string

const (
	CrawlPending   CrawlStatus = "pending"
	CrawlRunning   CrawlStatus = "running"
	CrawlSucceeded CrawlStatus = "succeeded"
	CrawlFailed    CrawlStatus = "failed"
	CrawlCancelled CrawlStatus = "cancelled"
)

// ErrorKind enumerates the ErrorLedger entry kinds (spec §4.F).
type ErrorKind string

const (
	ErrNetwork         ErrorKind = "network"
	ErrHTTP4xx         ErrorKind = "http_4xx"
	ErrHTTP5xx         ErrorKind = "http_5xx"
	ErrTimeout         ErrorKind = "timeout"
	ErrParse           ErrorKind = "parse"
	ErrRobotsExcluded  ErrorKind = "robots_excluded"
)

// ErrorLedgerEntry records one terminal per-URL fetch failure.
type ErrorLedgerEntry struct {
	URL       string
	Kind      ErrorKind
	Message   string
	Attempts  int
	FirstSeen time.Time
	LastSeen  time.Time
}

// ErrorLedgerCap bounds the ledger per spec §3 ("bounded list"); the
// specific cap is a SPEC_FULL.md supplement (see SPEC_FULL.md §C).
const ErrorLedgerCap = 500

// ErrorLedger is the bounded per-session list of terminal fetch failures.
type ErrorLedger struct {
	entries []ErrorLedgerEntry
}

// Append records a failure, evicting the oldest entry if the ledger is at
// capacity.
func (l *ErrorLedger) Append(e ErrorLedgerEntry) {
	if len(l.entries) >= ErrorLedgerCap {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, e)
}

// Entries returns a read-only snapshot of the ledger.
func (l *ErrorLedger) Entries() []ErrorLedgerEntry {
	out := make([]ErrorLedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many entries the ledger currently holds.
func (l *ErrorLedger) Len() int { return len(l.entries) }

// CrawlCounters tracks per-session page counters.
type CrawlCounters struct {
	PagesFetched int
	PagesFailed  int
	PagesSkipped int
}

// CrawlSession is a single bounded crawl run against a drag box (spec §3).
type CrawlSession struct {
	ID         string
	BoxID      string
	StartedAt  time.Time
	EndedAt    *time.Time
	Status     CrawlStatus
	Counters   CrawlCounters
	SeedURL    string
	DepthLimit int
	RateLimit  float64
	Errors     ErrorLedger
}

// Page is one fetched or imported document within a box (spec §3).
type Page struct {
	ID          string
	BoxID       string
	URL         string
	FetchedAt   time.Time
	StatusCode  int
	ETag        string
	ContentHash string
	Title       string
	Depth       int
}

// CharSpan is an inclusive-exclusive character range within a page's text.
type CharSpan struct {
	Start int
	End   int
}

// Chunk is a contiguous text slice of a page that owns one embedding
// (spec §3).
type Chunk struct {
	ID            string
	PageID        string
	BoxID         string
	Ordinal       int
	Text          string
	HeaderContext string
	CharSpan      CharSpan
	EmbeddingRef  string
	CreatedAt     time.Time
}

// HeaderContextCap bounds the contextual header prefix (spec §4.D).
const HeaderContextCap = 300
