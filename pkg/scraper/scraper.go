package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://roadmap.sh"
	maxBodyBytes   = 2 << 20
	maxSteps       = 15
)

// Result is the reference content extracted from a scraped roadmap page.
type Result struct {
	Steps     map[string]interface{}
	SourceURL string
}

// Scraper fetches public reference roadmaps for a career name.
type Scraper interface {
	Fetch(ctx context.Context, careerName string) (Result, error)
}

// HTTPScraper pulls roadmap pages over HTTP and reduces them to step text.
type HTTPScraper struct {
	baseURL string
	client  *http.Client
	policy  *bluemonday.Policy
	logger  zerolog.Logger
}

// New constructs a scraper against the given base URL (roadmap.sh when empty).
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPScraper {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		policy:  bluemonday.StrictPolicy(),
		logger:  logger.With().Str("component", "scraper").Logger(),
	}
}

// Fetch downloads the roadmap page for the career and converts it into a
// numbered step map. Callers treat any error as "no reference available".
func (s *HTTPScraper) Fetch(ctx context.Context, careerName string) (Result, error) {
	url := s.baseURL + "/" + Slug(careerName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build scrape request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("scrape %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read scrape body: %w", err)
	}

	if kind := mimetype.Detect(body); !kind.Is("text/html") && !strings.HasPrefix(kind.String(), "text/") {
		return Result{}, fmt.Errorf("scrape %s: unsupported content type %s", url, kind.String())
	}

	steps := s.extractSteps(string(body))
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("scrape %s: no step content found", url)
	}

	s.logger.Debug().Str("career", careerName).Int("steps", len(steps)).Msg("scraped reference roadmap")

	return Result{Steps: steps, SourceURL: url}, nil
}

func (s *HTTPScraper) extractSteps(html string) map[string]interface{} {
	text := s.policy.Sanitize(html)

	steps := make(map[string]interface{})
	index := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) < 24 {
			continue
		}
		index++
		steps[fmt.Sprintf("Step %d", index)] = line
		if index >= maxSteps {
			break
		}
	}
	return steps
}

// Slug normalises a free-text career name into a roadmap.sh path segment.
func Slug(careerName string) string {
	slug := strings.ToLower(strings.TrimSpace(careerName))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
