package arxiv

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paper-app/backend/internal/retry"
	"github.com/paper-app/backend/internal/domain"
)

const baseURL = "http://export.arxiv.org/api/query"

// Client queries arXiv's public Atom search API. Transport is resty so it
// shares the retry/backoff posture used by the rest of the provider stack
// and tolerates transient 5xx/proxy failures per the upstream contract.
type Client struct {
	http *resty.Client
}

func NewClient(proxyURL string) *Client {
	rc := resty.New().SetTimeout(30 * time.Second)
	if proxyURL != "" {
		rc.SetProxy(proxyURL)
	}
	return &Client{http: rc}
}

type SearchResult struct {
	Papers       []*domain.Paper
	TotalResults int
}

// Feed represents the arXiv Atom feed response
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []Entry  `xml:"entry"`
}

type Entry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Authors   []Author   `xml:"author"`
	Links     []Link     `xml:"link"`
	Category  []Category `xml:"category"`
}

type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type Category struct {
	Term string `xml:"term,attr"`
}

func isRetryableHTTP(err error) bool { return err != nil }

func (c *Client) query(ctx context.Context, params map[string]string) (*Feed, error) {
	var body []byte
	err := retry.Do(ctx, 3, time.Second, 30*time.Second, isRetryableHTTP, func(ctx context.Context) error {
		resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(baseURL)
		if err != nil {
			return fmt.Errorf("arxiv API request failed: %w", err)
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("arxiv API server error: %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return fmt.Errorf("arxiv API client error: %d", resp.StatusCode())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv response: %w", err)
	}
	return &feed, nil
}

// SearchByDateRange builds a submittedDate range query for one calendar day
// (in the arXiv query's native UTC form) and pages results up to maxResults,
// pageSize per call (capped at 2000 per the upstream contract).
func (c *Client) SearchByDateRange(ctx context.Context, date time.Time, extraTerm string, pageSize, maxResults int) (*SearchResult, error) {
	if pageSize <= 0 || pageSize > 2000 {
		pageSize = 2000
	}
	if maxResults <= 0 || maxResults > 30000 {
		maxResults = 30000
	}
	from := date.Format("20060102") + "000000"
	to := date.Format("20060102") + "235959"
	query := fmt.Sprintf("submittedDate:[%s TO %s]", from, to)
	if extraTerm != "" {
		query = fmt.Sprintf("%s AND %s", query, extraTerm)
	}

	all := &SearchResult{}
	offset := 0
	for offset < maxResults {
		limit := pageSize
		if offset+limit > maxResults {
			limit = maxResults - offset
		}
		feed, err := c.query(ctx, map[string]string{
			"search_query": query,
			"start":        fmt.Sprintf("%d", offset),
			"max_results":  fmt.Sprintf("%d", limit),
			"sortBy":       "submittedDate",
			"sortOrder":    "descending",
		})
		if err != nil {
			return all, err
		}
		all.TotalResults = feed.TotalResults
		if len(feed.Entries) == 0 {
			break
		}
		for _, entry := range feed.Entries {
			if p := entryToPaper(&entry); p != nil {
				all.Papers = append(all.Papers, p)
			}
		}
		offset += len(feed.Entries)
		if len(feed.Entries) < limit {
			break
		}
	}
	return all, nil
}

// SearchRecent scans the most recent submissions in descending order, one
// page at a time, calling onPage for each batch. Used by the ingestion
// fallback when a date-range query returns zero results. Stops when onPage
// returns false (caller-decided streak-of-empty-batches or offset cap).
func (c *Client) SearchRecent(ctx context.Context, offset, pageSize int, onPage func(papers []*domain.Paper) (cont bool)) error {
	if pageSize <= 0 || pageSize > 2000 {
		pageSize = 200
	}
	for {
		feed, err := c.query(ctx, map[string]string{
			"search_query": "all:*",
			"start":        fmt.Sprintf("%d", offset),
			"max_results":  fmt.Sprintf("%d", pageSize),
			"sortBy":       "submittedDate",
			"sortOrder":    "descending",
		})
		if err != nil {
			return err
		}
		if len(feed.Entries) == 0 {
			return nil
		}
		papers := make([]*domain.Paper, 0, len(feed.Entries))
		for _, entry := range feed.Entries {
			if p := entryToPaper(&entry); p != nil {
				papers = append(papers, p)
			}
		}
		if !onPage(papers) {
			return nil
		}
		offset += len(feed.Entries)
	}
}

func (c *Client) GetPaper(ctx context.Context, arxivID string) (*domain.Paper, error) {
	feed, err := c.query(ctx, map[string]string{"id_list": arxivID})
	if err != nil {
		return nil, err
	}
	if len(feed.Entries) == 0 {
		return nil, nil
	}
	return entryToPaper(&feed.Entries[0]), nil
}

func entryToPaper(entry *Entry) *domain.Paper {
	arxivID := extractArxivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		authors = append(authors, domain.Author{
			Name:        strings.TrimSpace(a.Name),
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}
	authorsJSON, _ := json.Marshal(authors)

	var submittedAt *time.Time
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			submittedAt = &t
		}
	}
	var updatedAt *time.Time
	if entry.Updated != "" {
		if t, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
			updatedAt = &t
		}
	}

	pdfURL := fmt.Sprintf("https://arxiv.org/pdf/%s", arxivID)
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}

	categories := make([]string, 0, len(entry.Category))
	for _, cat := range entry.Category {
		categories = append(categories, cat.Term)
	}
	primary := ""
	if len(categories) > 0 {
		primary = categories[0]
	}
	metadata := map[string]interface{}{
		"html_url": fmt.Sprintf("https://ar5iv.labs.arxiv.org/html/%s", arxivID),
	}
	metadataJSON, _ := json.Marshal(metadata)

	return &domain.Paper{
		ExternalID:      arxivID,
		Source:          "arxiv",
		Title:           strings.TrimSpace(entry.Title),
		Abstract:        strings.TrimSpace(entry.Summary),
		Authors:         authorsJSON,
		SubmittedAt:     submittedAt,
		UpdatedAt:       updatedAt,
		PDFURL:          pdfURL,
		Categories:      categories,
		PrimaryCategory: primary,
		Metadata:        metadataJSON,
	}
}

func extractArxivID(fullURL string) string {
	parts := strings.Split(fullURL, "/abs/")
	if len(parts) != 2 {
		return ""
	}
	id := parts[1]
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		versionPart := id[idx+1:]
		isVersion := true
		for _, c := range versionPart {
			if c < '0' || c > '9' {
				isVersion = false
				break
			}
		}
		if isVersion && len(versionPart) > 0 {
			id = id[:idx]
		}
	}
	return id
}
