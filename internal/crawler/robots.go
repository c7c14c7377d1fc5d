package crawler

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// robotsTTL caches a host's robots.txt for 24h (SPEC_FULL.md §C), so a long
// crawl session doesn't refetch it on every request but a later session
// picks up site changes.
const robotsTTL = 24 * time.Hour

type robotsRules struct {
	disallow []string
	fetchedAt time.Time
}

// RobotsCache fetches and caches robots.txt per host (spec §4.F: "fetched
// once per session, cached").
type RobotsCache struct {
	mu     sync.Mutex
	rules  map[string]robotsRules
	client *http.Client
}

func NewRobotsCache(client *http.Client) *RobotsCache {
	return &RobotsCache{rules: map[string]robotsRules{}, client: client}
}

// Allowed reports whether path is permitted for a generic user agent on
// host, fetching and caching robots.txt on first use.
func (c *RobotsCache) Allowed(ctx context.Context, scheme, host, path string) bool {
	rules := c.rulesFor(ctx, scheme, host)
	for _, d := range rules.disallow {
		if d == "" {
			continue
		}
		if strings.HasPrefix(path, d) {
			return false
		}
	}
	return true
}

func (c *RobotsCache) rulesFor(ctx context.Context, scheme, host string) robotsRules {
	c.mu.Lock()
	if r, ok := c.rules[host]; ok && time.Since(r.fetchedAt) < robotsTTL {
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()

	r := fetchRobots(ctx, c.client, scheme, host)
	c.mu.Lock()
	c.rules[host] = r
	c.mu.Unlock()
	return r
}

func fetchRobots(ctx context.Context, client *http.Client, scheme, host string) robotsRules {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+"/robots.txt", nil)
	if err != nil {
		return robotsRules{fetchedAt: time.Now()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return robotsRules{fetchedAt: time.Now()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return robotsRules{fetchedAt: time.Now()}
	}
	return robotsRules{disallow: parseDisallow(resp.Body), fetchedAt: time.Now()}
}

// parseDisallow extracts Disallow rules that apply to "*" or our own user
// agent, a deliberately small subset of the robots.txt grammar sufficient
// for the documentation sites DocBro targets.
func parseDisallow(r interface{ Read([]byte) (int, error) }) []string {
	scanner := bufio.NewScanner(r)
	var disallow []string
	applies := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "user-agent:"):
			agent := strings.TrimSpace(line[len("user-agent:"):])
			applies = agent == "*" || strings.EqualFold(agent, "docbro")
		case strings.HasPrefix(lower, "disallow:") && applies:
			path := strings.TrimSpace(line[len("disallow:"):])
			disallow = append(disallow, path)
		}
	}
	return disallow
}
