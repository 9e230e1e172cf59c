package fetcher

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// robotsRules holds the parsed disallow rules relevant to our user agent.
type robotsRules struct {
	disallows []string
}

func (r *robotsRules) allowed(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, d := range r.disallows {
		if d == "" {
			continue
		}
		if strings.HasPrefix(path, d) {
			return false
		}
	}
	return true
}

// RobotsCache fetches and caches robots.txt decisions per host. The cache is
// shared across pipeline workers; the mutex prevents duplicate robots.txt
// fetches for the same host.
type RobotsCache struct {
	mu        sync.Mutex
	client    *http.Client
	userAgent string
	hosts     map[string]*robotsRules
}

// NewRobotsCache creates a robots.txt decision cache.
func NewRobotsCache(userAgent string, timeout time.Duration) *RobotsCache {
	return &RobotsCache{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		hosts:     make(map[string]*robotsRules),
	}
}

// Allowed reports whether the URL may be fetched under the host's robots.txt.
// Unreachable or malformed robots.txt allows everything — only an explicit
// disallow blocks a fetch.
func (rc *RobotsCache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	rc.mu.Lock()
	rules, ok := rc.hosts[u.Host]
	if !ok {
		rules = rc.fetchRules(ctx, u.Scheme, u.Host)
		rc.hosts[u.Host] = rules
	}
	rc.mu.Unlock()

	return rules.allowed(u.Path)
}

// fetchRules retrieves and parses robots.txt for one host. Called with the
// cache mutex held so each host is fetched at most once per run.
func (rc *RobotsCache) fetchRules(ctx context.Context, scheme, host string) *robotsRules {
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &robotsRules{}
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		zap.L().Debug("robots: fetch failed, allowing all",
			zap.String("host", host),
			zap.Error(err),
		)
		return &robotsRules{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &robotsRules{}
	}

	body := io.LimitReader(resp.Body, 64*1024)
	rules := parseRobots(body, rc.userAgent)
	zap.L().Debug("robots: cached rules",
		zap.String("host", host),
		zap.Int("disallows", len(rules.disallows)),
	)
	return rules
}

// parseRobots extracts Disallow rules from the groups that apply to us:
// the wildcard group plus any group whose agent token appears in userAgent.
func parseRobots(r io.Reader, userAgent string) *robotsRules {
	rules := &robotsRules{}
	uaLower := strings.ToLower(userAgent)

	scanner := bufio.NewScanner(r)
	applies := false
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			agent := strings.ToLower(value)
			applies = agent == "*" || strings.Contains(uaLower, agent)
		case "disallow":
			if applies && value != "" {
				rules.disallows = append(rules.disallows, value)
			}
		}
	}
	return rules
}
