package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/model"
)

const (
	DefaultBaseURL = "https://api.hh.ru"
	hhPageSize     = 100
	httpTimeout    = 10 * time.Second
	maxErrorBody   = 4096
)

// HHFetcher fetches vacancies from the public hh.ru API. It holds no
// credentials; the API is open.
type HHFetcher struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       *logging.Logger
}

// FetcherOption customises an HHFetcher.
type FetcherOption func(*HHFetcher)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HHFetcher) { f.client = &http.Client{Timeout: d} }
}

// WithUserAgent sets the User-Agent header; hh.ru rejects requests without one.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HHFetcher) { f.userAgent = ua }
}

// NewHHFetcher constructs a fetcher with a shared HTTP client.
func NewHHFetcher(baseURL string, log *logging.Logger, opts ...FetcherOption) *HHFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	f := &HHFetcher{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "jobmate-hh-collector/1.0",
		client:    &http.Client{Timeout: httpTimeout},
		log:       log.With("component", "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// vacanciesResponse mirrors the top-level hh.ru vacancies JSON response.
type vacanciesResponse struct {
	Items []model.Vacancy `json:"items"`
	Found int             `json:"found"`
	Pages int             `json:"pages"`
	Page  int             `json:"page"`
}

// FetchVacancies retrieves every vacancy of one employer, walking pages from
// 0 until the last page reported by the API. Any failed page abandons the
// whole fetch: partial results are never returned.
func (f *HHFetcher) FetchVacancies(ctx context.Context, employerID string) ([]model.Vacancy, error) {
	vacancies := make([]model.Vacancy, 0)

	page := 0
	for {
		resp, err := f.fetchPage(ctx, employerID, page)
		if err != nil {
			return nil, fmt.Errorf("employer %s page %d: %w", employerID, page, err)
		}
		vacancies = append(vacancies, resp.Items...)

		if page >= resp.Pages-1 {
			break
		}
		page++
	}

	f.log.Info("Fetched vacancies",
		"employer_id", employerID, "pages", page+1, "vacancies", len(vacancies))
	return vacancies, nil
}

func (f *HHFetcher) fetchPage(ctx context.Context, employerID string, page int) (*vacanciesResponse, error) {
	params := url.Values{}
	params.Set("employer_id", employerID)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(hhPageSize))

	var out vacanciesResponse
	if err := f.getJSON(ctx, f.baseURL+"/vacancies?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchEmployer returns hh.ru metadata for a single employer.
func (f *HHFetcher) FetchEmployer(ctx context.Context, employerID string) (*model.EmployerInfo, error) {
	var info model.EmployerInfo
	endpoint := f.baseURL + "/employers/" + url.PathEscape(employerID)
	if err := f.getJSON(ctx, endpoint, &info); err != nil {
		return nil, fmt.Errorf("employer %s: %w", employerID, err)
	}
	return &info, nil
}

func (f *HHFetcher) getJSON(ctx context.Context, reqURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("hh.ru returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
