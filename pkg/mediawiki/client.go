package mediawiki

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

	"wikiglossary/pkg/config"
	errs "wikiglossary/pkg/errors"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/models"
	"wikiglossary/pkg/ratelimit"
	"wikiglossary/pkg/retry"
)

// Client talks to a MediaWiki api.php endpoint. Every request waits on the
// shared limiter first and is retried according to the retry config.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	apiURL     string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a client for apiURL
func NewClient(apiURL string, timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewInterval(0)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = log

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": "wikiglossary/1.0",
			"Accept":     "application/json",
		},
		apiURL:  apiURL,
		limiter: limiter,
		retry:   retryCfg,
		logger:  log,
	}
}

// NewClientFromConfig wires a client from the wiki and rate_limit sections
func NewClientFromConfig(cfg *config.Config, log logger.Logger) *Client {
	c := NewClient(cfg.Wiki.APIURL, cfg.Wiki.RequestTimeout, ratelimit.NewInterval(cfg.RateLimit.RequestInterval), log)
	c.SetHeader("User-Agent", cfg.Wiki.UserAgent)

	rc := retry.DefaultConfig()
	rc.Logger = c.logger
	rc.MaxAttempts = cfg.RateLimit.MaxRetries
	rc.MaxThrottleRetries = cfg.RateLimit.MaxThrottleRetries
	rc.Backoff = &retry.ExponentialBackoff{
		BaseDelay:  cfg.RateLimit.RetryDelay,
		MaxDelay:   cfg.RateLimit.MaxRetryDelay,
		Multiplier: 2.0,
	}
	rc.ThrottleBackoff = &retry.ExponentialBackoff{
		BaseDelay:  cfg.RateLimit.ThrottleDelay,
		MaxDelay:   5 * time.Minute,
		Multiplier: 2.0,
	}
	c.SetRetryConfig(rc)
	return c
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetRetryConfig replaces the retry policy
func (c *Client) SetRetryConfig(cfg *retry.Config) {
	c.retry = cfg
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// GetJSON performs one logical API call with params and decodes the response
// into target. format=json and formatversion=2 are always added.
func (c *Client) GetJSON(ctx context.Context, params url.Values, target interface{}) error {
	return retry.Do(func() error {
		return c.getOnce(ctx, params, target)
	}, c.retry.WithContext(ctx))
}

func (c *Client) getOnce(ctx context.Context, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("format", "json")
	query.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return errs.New(errs.ErrorTypeRequest, 0, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	action := describe(params)
	if err := c.checkResponseStatus(resp, action); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return c.parseError(body, resp.StatusCode, action, err)
	}
	if envelope.Error != nil {
		return c.apiError(envelope.Error, resp, action)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return c.parseError(body, resp.StatusCode, action, err)
	}
	return nil
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	logger.LogRequest(c.logger, describe(req.URL.Query()), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps non-200 statuses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response, action string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	errType := errs.TypeForStatus(resp.StatusCode)
	apiErr := errs.New(errType, resp.StatusCode, "unexpected status %d for %s", resp.StatusCode, action)
	if errType == errs.ErrorTypeRateLimit {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		logger.LogRateLimit(c.logger, action, apiErr.RetryAfter)
	}
	return apiErr
}

func (c *Client) apiError(e *APIError, resp *http.Response, action string) error {
	apiErr := errs.New(errs.TypeForAPICode(e.Code), resp.StatusCode, "%s: %s", e.Code, e.Info)
	if apiErr.Type == errs.ErrorTypeRateLimit {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		logger.LogRateLimit(c.logger, action, apiErr.RetryAfter)
		return apiErr
	}

	c.logger.WarnWithFields("API returned error", map[string]interface{}{
		"action": action,
		"code":   e.Code,
		"info":   e.Info,
	})
	return apiErr
}

func (c *Client) parseError(body []byte, status int, action string, err error) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
		"action":       action,
		"status":       status,
		"error":        err.Error(),
		"body_preview": preview,
	})
	return errs.New(errs.ErrorTypeParsing, status, "failed to parse JSON: %v", err)
}

// parseRetryAfter accepts delta-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func describe(params url.Values) string {
	if list := params.Get("list"); list != "" {
		return "list=" + list
	}
	if prop := params.Get("prop"); prop != "" {
		return "prop=" + prop
	}
	return "action=" + params.Get("action")
}

// query issues params and keeps following the continue object until the API
// stops returning one. visit is called with each response.
func (c *Client) query(ctx context.Context, params url.Values, visit func(*Response)) error {
	cont := map[string]string{}
	for {
		p := url.Values{}
		for k, v := range params {
			p[k] = v
		}
		for k, v := range cont {
			p.Set(k, v)
		}

		var resp Response
		if err := c.GetJSON(ctx, p, &resp); err != nil {
			return err
		}
		visit(&resp)

		if len(resp.Continue) == 0 {
			return nil
		}
		cont = resp.Continue
	}
}

// ListPages fetches one page of titles in namespace starting at cursor.
// The returned cursor is empty once the listing is complete.
func (c *Client) ListPages(ctx context.Context, namespace, limit int, cursor string) (*PageList, error) {
	var resp Response
	if err := c.GetJSON(ctx, AllPagesParams(namespace, limit, cursor), &resp); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	list := &PageList{
		Pages:  make([]models.PageRecord, 0, len(resp.Query.AllPages)),
		Cursor: resp.Continue["apcontinue"],
	}
	for _, p := range resp.Query.AllPages {
		list.Pages = append(list.Pages, models.PageRecord{PageID: p.PageID, Title: p.Title})
	}
	return list, nil
}

// FetchCategories returns the raw categories of each page in ids. Every id
// gets an entry; pages without categories map to an empty slice.
func (c *Client) FetchCategories(ctx context.Context, ids []int) (models.CategoryMap, error) {
	result := make(models.CategoryMap, len(ids))
	for _, id := range ids {
		result[id] = []string{}
	}

	err := c.query(ctx, CategoriesParams(ids), func(resp *Response) {
		for _, p := range resp.Query.Pages {
			if _, ok := result[p.PageID]; !ok {
				continue
			}
			for _, cat := range p.Categories {
				result[p.PageID] = append(result[p.PageID], StripCategoryPrefix(cat.Title))
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return result, nil
}

// FetchContent returns the raw markup of each page in ids. Pages that are
// missing or have no main slot map to "".
func (c *Client) FetchContent(ctx context.Context, ids []int) (models.ContentMap, error) {
	result := make(models.ContentMap, len(ids))
	for _, id := range ids {
		result[id] = ""
	}

	err := c.query(ctx, ContentParams(ids), func(resp *Response) {
		for _, p := range resp.Query.Pages {
			if _, ok := result[p.PageID]; !ok {
				continue
			}
			if content := p.MainContent(); content != "" {
				result[p.PageID] = content
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	return result, nil
}
