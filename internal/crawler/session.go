package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/metrics"
	"github.com/behemotion/docbro/internal/model"
)

// workerCount is the default crawl worker pool size (spec §4.F).
const workerCount = 4

// PageFetched is emitted for every successfully fetched page, consumed by
// internal/indexer to chunk and embed it.
type PageFetched struct {
	Page model.Page
	Body string
}

// Session drives one crawl run for a box: frontier management, per-host
// rate limiting, robots.txt compliance, retry, and extraction. The single
// writer to MetaStore's page table is this Session, via serialized upserts
// on its own goroutine-safe metastore.Store client.
type Session struct {
	BoxID          string
	SeedURL        string
	MaxDepth       int
	MaxPages       int
	RateLimit      float64
	FollowExternal bool

	meta   *metastore.Store
	log    *zap.Logger
	client *http.Client
	robots *RobotsCache

	frontier  *Frontier
	limiters  sync.Map // host -> *rate.Limiter
	cancelled atomic.Bool
	fetched   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64

	onPage func(PageFetched)
}

// NewSession constructs a crawl session. onPage is invoked once per
// successfully fetched+extracted page, on the fetching goroutine.
func NewSession(boxID, seedURL string, maxDepth, maxPages int, rateLimit float64, followExternal bool, meta *metastore.Store, log *zap.Logger, onPage func(PageFetched)) *Session {
	return &Session{
		BoxID: boxID, SeedURL: seedURL, MaxDepth: maxDepth, MaxPages: maxPages,
		RateLimit: rateLimit, FollowExternal: followExternal,
		meta: meta, log: log,
		client: &http.Client{Timeout: 30 * time.Second},
		robots: NewRobotsCache(&http.Client{Timeout: 10 * time.Second}),
		frontier: NewFrontier(),
		onPage:   onPage,
	}
}

// Cancel requests cooperative shutdown; in-flight workers finish their
// current fetch and stop between fetches or backoff waits (spec §4.F).
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Run drives the session to completion and returns the final session
// record including its error ledger.
func (s *Session) Run(ctx context.Context) (model.CrawlSession, error) {
	seed, err := Normalize(s.SeedURL)
	if err != nil {
		return model.CrawlSession{}, err
	}
	s.frontier.Seed(seed)

	record, err := s.meta.CreateCrawlSession(ctx, model.CrawlSession{
		BoxID: s.BoxID, Status: model.CrawlRunning,
		SeedURL: s.SeedURL, DepthLimit: s.MaxDepth, RateLimit: s.RateLimit,
	})
	if err != nil {
		return model.CrawlSession{}, err
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, record.ID)
		}()
	}
	wg.Wait()

	status := model.CrawlSucceeded
	if s.cancelled.Load() {
		status = model.CrawlCancelled
	}
	if err := s.meta.FinishCrawlSession(ctx, record.ID, status); err != nil {
		return model.CrawlSession{}, err
	}
	if err := s.meta.UpdateCrawlCounters(ctx, record.ID, model.CrawlCounters{
		PagesFetched: int(s.fetched.Load()), PagesFailed: int(s.failed.Load()), PagesSkipped: int(s.skipped.Load()),
	}); err != nil {
		return model.CrawlSession{}, err
	}
	return s.meta.GetCrawlSession(ctx, record.ID)
}

func (s *Session) worker(ctx context.Context, sessionID string) {
	for {
		if s.cancelled.Load() || ctx.Err() != nil {
			return
		}
		if s.MaxPages > 0 && int(s.fetched.Load()) >= s.MaxPages {
			return
		}
		entry, ok := s.frontier.Pop()
		if !ok {
			if s.frontier.Len() == 0 {
				return
			}
			continue
		}
		if s.MaxDepth > 0 && entry.Depth > s.MaxDepth {
			s.skipped.Add(1)
			continue
		}
		s.processOne(ctx, sessionID, entry)
	}
}

func (s *Session) processOne(ctx context.Context, sessionID string, entry FrontierEntry) {
	u, err := url.Parse(entry.URL)
	if err != nil {
		s.recordFailure(ctx, sessionID, entry.URL, model.ErrParse, err.Error())
		return
	}

	limiter := s.limiterFor(u.Host)
	if err := limiter.Wait(ctx); err != nil {
		return
	}

	if !s.robots.Allowed(ctx, u.Scheme, u.Host, u.Path) {
		s.recordFailure(ctx, sessionID, entry.URL, model.ErrRobotsExcluded, "excluded by robots.txt")
		s.skipped.Add(1)
		return
	}

	body, status, retryAfter, err := s.fetch(ctx, entry.URL)
	if err != nil {
		s.retryOrFail(ctx, sessionID, entry, model.ErrNetwork, err.Error())
		return
	}
	if status != http.StatusOK {
		kind := model.ErrHTTP5xx
		if status < 500 {
			kind = model.ErrHTTP4xx
		}
		if Retryable(status) {
			if retryAfter > 0 {
				time.Sleep(retryAfter)
			}
			s.retryOrFail(ctx, sessionID, entry, kind, http.StatusText(status))
		} else {
			s.recordFailure(ctx, sessionID, entry.URL, kind, http.StatusText(status))
		}
		return
	}

	extracted, err := Extract(entry.URL, body)
	if err != nil {
		s.recordFailure(ctx, sessionID, entry.URL, model.ErrParse, err.Error())
		return
	}

	page := model.Page{
		BoxID: s.BoxID, URL: entry.URL, FetchedAt: time.Now(),
		StatusCode: status, Title: extracted.Title, Depth: entry.Depth,
		ContentHash: contentHash(body),
	}
	if _, _, err := s.meta.UpsertPage(ctx, page); err != nil {
		s.recordFailure(ctx, sessionID, entry.URL, model.ErrParse, err.Error())
		return
	}
	if !s.acceptFetch() {
		// max_pages was reached by a concurrent worker between our guard
		// check in worker() and this point; the page row stays (it was a
		// real fetch) but it does not count toward pages_fetched and is
		// not handed to the indexer, keeping the counter from overshooting.
		s.skipped.Add(1)
		return
	}
	metrics.CrawlPagesFetched.WithLabelValues(s.BoxID).Inc()
	if s.onPage != nil {
		s.onPage(PageFetched{Page: page, Body: extracted.Body})
	}

	for _, outlink := range extracted.Outlinks {
		ou, err := url.Parse(outlink)
		if err != nil {
			continue
		}
		if !s.FollowExternal && !SameRegistrableDomain(u.Host, ou.Host) {
			continue
		}
		s.frontier.Enqueue(outlink, entry.Depth+1)
	}
}

func (s *Session) retryOrFail(ctx context.Context, sessionID string, entry FrontierEntry, kind model.ErrorKind, msg string) {
	if entry.Attempts+1 >= maxAttempts {
		s.recordFailure(ctx, sessionID, entry.URL, kind, msg)
		return
	}
	delay := BackoffDelay(entry.Attempts + 1)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}
	if s.cancelled.Load() {
		return
	}
	s.frontier.Requeue(entry)
}

func (s *Session) recordFailure(ctx context.Context, sessionID, url string, kind model.ErrorKind, msg string) {
	s.failed.Add(1)
	metrics.CrawlPagesFailed.WithLabelValues(s.BoxID, string(kind)).Inc()
	now := time.Now()
	_ = s.meta.AppendCrawlError(ctx, sessionID, model.ErrorLedgerEntry{
		URL: url, Kind: kind, Message: msg, Attempts: 1, FirstSeen: now, LastSeen: now,
	})
}

func (s *Session) fetch(ctx context.Context, rawURL string) (body string, status int, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, 0, err
	}
	defer resp.Body.Close()

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := time.ParseDuration(ra + "s"); err == nil {
			retryAfter = secs
		}
	}

	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	return string(buf), resp.StatusCode, retryAfter, nil
}

func contentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// acceptFetch atomically admits one successful fetch against max_pages,
// the single point where pages_fetched is allowed to grow (spec §8: "stop
// exactly when pages_fetched == max_pages"). Without this CAS loop, the
// plain load-then-add in worker()'s guard lets multiple in-flight workers
// each pass the guard before any of them increments, overshooting the cap.
func (s *Session) acceptFetch() bool {
	if s.MaxPages <= 0 {
		s.fetched.Add(1)
		return true
	}
	for {
		cur := s.fetched.Load()
		if cur >= int64(s.MaxPages) {
			return false
		}
		if s.fetched.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// limiterFor returns (creating if needed) the per-host token bucket with
// capacity ceil(rate_limit) and refill rate rate_limit/sec (spec §4.F).
func (s *Session) limiterFor(host string) *rate.Limiter {
	if v, ok := s.limiters.Load(host); ok {
		return v.(*rate.Limiter)
	}
	burst := int(math.Ceil(s.RateLimit))
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(s.RateLimit), burst)
	actual, _ := s.limiters.LoadOrStore(host, limiter)
	return actual.(*rate.Limiter)
}
