// Package hltv is a minimal scraper for HLTV event result pages: it lists the
// matches of an event, finds each match's demo link and downloads it.
package hltv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// BaseURL is the HLTV site root.
	BaseURL = "https://www.hltv.org"

	// UserAgent is sent with every request; HLTV rejects the Go default.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// MinRequestInterval spaces consecutive requests.
	MinRequestInterval = 2 * time.Second
)

// ErrNoDemo is returned by Match when the page carries no demo link.
var ErrNoDemo = errors.New("no demo link")

var (
	matchHref = regexp.MustCompile(`/matches/(\d+)/`)
	demoHref  = regexp.MustCompile(`\.dem(\.bz2|\.gz|\.zst)?$|/download/demo/\d+$`)
	datePart  = regexp.MustCompile(`(\d+)\w* of (\w+) (\d{4})`)
)

// Client fetches HLTV pages with rate limiting.
type Client struct {
	base     string
	http     *http.Client
	interval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimSuffix(base, "/") }
}

// WithInterval sets the minimum delay between requests.
func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns a client for the public site.
func NewClient(opts ...Option) *Client {
	c := &Client{
		base:     BaseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		interval: MinRequestInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatchInfo describes one match page.
type MatchInfo struct {
	MatchID string
	Team1   string
	Team2   string
	Map     string
	Date    string // YYYY-MM-DD
	DemoURL string
}

// Filename is the local name of the match's demo.
func (m MatchInfo) Filename() string {
	return fmt.Sprintf("%s-%s-vs-%s-%s.dem", m.Date, m.Team1, m.Team2, m.Map)
}

// EventMatches returns the ids of the matches listed on an event's results
// page, in page order without duplicates.
func (c *Client) EventMatches(ctx context.Context, eventID int) ([]string, error) {
	doc, err := c.get(ctx, fmt.Sprintf("/results?event=%d", eventID))
	if err != nil {
		return nil, fmt.Errorf("results of event %d: %w", eventID, err)
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a.a-reset[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := matchHref.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	})
	return ids, nil
}

// Match reads a match page. It returns ErrNoDemo when the page has no demo
// link, and an error when the team names or map are missing.
func (c *Client) Match(ctx context.Context, matchID string) (*MatchInfo, error) {
	doc, err := c.get(ctx, "/matches/"+matchID+"/")
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	return c.parseMatch(doc, matchID, time.Now())
}

func (c *Client) parseMatch(doc *goquery.Document, matchID string, now time.Time) (*MatchInfo, error) {
	teams := doc.Find("div.teamName")
	if teams.Length() < 2 {
		return nil, fmt.Errorf("match %s: team names not found", matchID)
	}
	mapName := slug(doc.Find("div.mapname").First().Text())
	if mapName == "" {
		return nil, fmt.Errorf("match %s: map not found", matchID)
	}

	info := &MatchInfo{
		MatchID: matchID,
		Team1:   slug(teams.Eq(0).Text()),
		Team2:   slug(teams.Eq(1).Text()),
		Map:     mapName,
		Date:    parseDate(doc.Find("div.date").First().Text(), now),
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !demoHref.MatchString(href) {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = c.base + href
		}
		info.DemoURL = href
		return false
	})
	if info.DemoURL == "" {
		return info, fmt.Errorf("match %s: %w", matchID, ErrNoDemo)
	}
	return info, nil
}

// slug lower-cases s and joins its words with dashes.
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// parseDate reads dates like "23rd of June 2025". Unparseable dates fall back
// to now.
func parseDate(s string, now time.Time) string {
	if m := datePart.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse("2 January 2006", m[1]+" "+m[2]+" "+m[3]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return now.Format("2006-01-02")
}

// wait blocks until the request interval has passed since the last request.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRequest.IsZero() {
		if d := c.interval - time.Since(c.lastRequest); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *Client) request(ctx context.Context, url string) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// get fetches a page and parses it.
func (c *Client) get(ctx context.Context, path string) (*goquery.Document, error) {
	resp, err := c.request(ctx, c.base+path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}
