package sukl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/tvio/ai/internal/config"
	"github.com/tvio/ai/internal/model"
)

// maxRawLogBytes bounds how much of an undecodable payload is kept for logging.
const maxRawLogBytes = 2048

// Client talks to the SUKL registry API. It owns the shared token-bucket
// rate limiter, so one Client instance must be shared by all pipeline
// workers to keep the outbound request rate bounded.
type Client struct {
	baseURL  string
	http     *http.Client
	download *http.Client
	limiter  *rate.Limiter
	retry    RetryPolicy
	maxPDF   int64
	pageSize int
	log      *slog.Logger
}

// NewClient builds a registry client from configuration. The HTTP transport
// is wrapped with otelhttp so outbound calls show up in traces.
func NewClient(cfg config.SUKLConfig, log *slog.Logger) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)

	limit := rate.Inf
	if cfg.RateIntervalMS > 0 {
		limit = rate.Every(time.Duration(cfg.RateIntervalMS) * time.Millisecond)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
			Transport: transport,
		},
		download: &http.Client{
			Timeout:   time.Duration(cfg.DownloadTimeoutSec) * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(limit, 1),
		retry: RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Duration(cfg.RetryBaseMS) * time.Millisecond,
		},
		maxPDF:   cfg.MaxPDFBytes,
		pageSize: cfg.PageSize,
		log:      log,
	}
}

// FetchCatalog retrieves the full set of item codes for a reporting period,
// paging until the server runs out of results. Codes are deduplicated
// preserving first-seen order. Any page failing past the retry budget makes
// the whole catalog fetch fail; there is no partial catalog.
func (c *Client) FetchCatalog(ctx context.Context, period string) ([]string, error) {
	seen := make(map[string]struct{})
	var codes []string

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("obdobi", period)
		q.Set("typSeznamu", "dlpo")
		q.Set("stranka", fmt.Sprintf("%d", page))
		q.Set("velikostStranky", fmt.Sprintf("%d", c.pageSize))
		u := fmt.Sprintf("%s/lecive-pripravky?%s", c.baseURL, q.Encode())

		var batch []string
		err := c.retry.Do(ctx, c.log, "fetch_catalog_page", func() error {
			batch = nil
			return c.getJSON(ctx, c.http, u, &batch)
		})
		if err != nil {
			return nil, fmt.Errorf("catalog page %d: %w", page, err)
		}

		for _, code := range batch {
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}

		c.log.Debug("catalog page fetched", "page", page, "codes", len(batch))
		if len(batch) == 0 || len(batch) < c.pageSize {
			break
		}
	}

	return codes, nil
}

// FetchDetail retrieves the full metadata payload for one item code.
// Returns ErrNotFound for unknown codes and a DecodeError (with the raw
// payload attached) when the response does not match the expected schema.
func (c *Client) FetchDetail(ctx context.Context, code string) (*model.Drug, error) {
	u := fmt.Sprintf("%s/lecive-pripravky/%s", c.baseURL, url.PathEscape(code))

	var drug model.Drug
	err := c.retry.Do(ctx, c.log, "fetch_detail", func() error {
		drug = model.Drug{}
		return c.getJSON(ctx, c.http, u, &drug)
	})
	if err != nil {
		return nil, err
	}

	// Some payloads omit the code field; the requested code is authoritative.
	if drug.SUKLCode == "" {
		drug.SUKLCode = code
	}
	return &drug, nil
}

// FetchDocumentMetadata lists document descriptors for one item, filtered by
// document type. The endpoint may answer with a single object instead of an
// array; both are normalized. An empty result is a normal outcome.
func (c *Client) FetchDocumentMetadata(ctx context.Context, code, docType string) ([]model.DocumentMeta, error) {
	q := url.Values{}
	q.Set("typ", docType)
	u := fmt.Sprintf("%s/dokumenty-metadata/%s?%s", c.baseURL, url.PathEscape(code), q.Encode())

	var raw []byte
	err := c.retry.Do(ctx, c.log, "fetch_document_metadata", func() error {
		var err error
		raw, err = c.getBody(ctx, c.http, u)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Item simply has no documents of this type.
			return nil, nil
		}
		return nil, err
	}

	var metas []model.DocumentMeta
	if jsonErr := json.Unmarshal(raw, &metas); jsonErr != nil {
		var single model.DocumentMeta
		if jsonErr2 := json.Unmarshal(raw, &single); jsonErr2 != nil {
			return nil, &DecodeError{Raw: truncate(raw), Err: jsonErr}
		}
		metas = []model.DocumentMeta{single}
	}
	return metas, nil
}

// FetchDocumentBinary downloads the raw content for one descriptor. An empty
// body and a body exceeding the size guard are both terminal skip errors.
func (c *Client) FetchDocumentBinary(ctx context.Context, meta model.DocumentMeta) ([]byte, error) {
	u := fmt.Sprintf("%s/dokumenty/%s", c.baseURL, url.PathEscape(string(meta.ID)))

	var content []byte
	err := c.retry.Do(ctx, c.log, "fetch_document_binary", func() error {
		var err error
		content, err = c.getBinary(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (c *Client) getBinary(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	limit := c.maxPDF
	var rd io.Reader = resp.Body
	if limit > 0 {
		rd = io.LimitReader(resp.Body, limit+1)
	}
	content, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}
	if limit > 0 && int64(len(content)) > limit {
		return nil, ErrDocumentTooLarge
	}
	return content, nil
}

// getJSON fetches u and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, hc *http.Client, u string, v any) error {
	raw, err := c.getBody(ctx, hc, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Raw: truncate(raw), Err: err}
	}
	return nil
}

func (c *Client) getBody(ctx context.Context, hc *http.Client, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

func truncate(raw []byte) []byte {
	if len(raw) > maxRawLogBytes {
		return bytes.Clone(raw[:maxRawLogBytes])
	}
	return raw
}
