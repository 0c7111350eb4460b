package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stevechez/influencer-portfolio/internal/requestctx"
	"github.com/stevechez/influencer-portfolio/internal/shot"
)

const (
	defaultAPIBase      = "https://api.cloudinary.com"
	defaultDeliveryBase = "https://res.cloudinary.com"
	defaultFolder       = "portfolio"
	defaultMaxResults   = 30
	defaultWorkers      = 6
	maxErrorBody        = 512
	instrumentationName = "github.com/stevechez/influencer-portfolio/internal/provider"
)

// Config describes the Cloudinary account and query shape.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// Folder is the asset namespace searched, without trailing "/*".
	Folder       string
	MaxResults   int
	Placeholders bool
	// PlaceholderWorkers bounds concurrent placeholder downloads.
	PlaceholderWorkers int
	APIBase            string
	DeliveryBase       string
}

// Option customises a Cloudinary adapter.
type Option func(*Cloudinary)

// WithHTTPClient overrides the HTTP client used for search and placeholder calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cloudinary) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cloudinary) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Cloudinary) {
		if m != nil {
			c.meter = m
		}
	}
}

// Cloudinary queries the Cloudinary Search API. Results are never cached.
type Cloudinary struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	tracer trace.Tracer
	meter  metric.Meter

	requests        metric.Int64Counter
	requestsEnabled bool
	failures        metric.Int64Counter
	failuresEnabled bool
}

// NewCloudinary builds an adapter. Missing credentials are not an error
// here; every fetch then logs ErrNotConfigured and returns nothing.
func NewCloudinary(cfg Config, opts ...Option) *Cloudinary {
	cfg.CloudName = strings.TrimSpace(cfg.CloudName)
	cfg.Folder = strings.Trim(strings.TrimSpace(cfg.Folder), "/")
	if cfg.Folder == "" {
		cfg.Folder = defaultFolder
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.PlaceholderWorkers <= 0 {
		cfg.PlaceholderWorkers = defaultWorkers
	}
	cfg.APIBase = strings.TrimRight(firstNonEmpty(cfg.APIBase, defaultAPIBase), "/")
	cfg.DeliveryBase = strings.TrimRight(firstNonEmpty(cfg.DeliveryBase, defaultDeliveryBase), "/")

	c := &Cloudinary{
		cfg:    cfg,
		http:   &http.Client{},
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.GetMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	c.requests, err = c.meter.Int64Counter("provider.requests",
		metric.WithDescription("Search API calls issued to the image provider"))
	if err != nil {
		c.logger.Warn("provider: unable to register request metric", zap.Error(err))
	}
	c.requestsEnabled = err == nil
	c.failures, err = c.meter.Int64Counter("provider.failures",
		metric.WithDescription("Search API calls that degraded to an empty result"))
	if err != nil {
		c.logger.Warn("provider: unable to register failure metric", zap.Error(err))
	}
	c.failuresEnabled = err == nil
	return c
}

// Configured reports whether the adapter can issue search calls.
func (c *Cloudinary) Configured() bool {
	return c.cfg.CloudName != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// FetchCollection returns the newest shots in the portfolio folder,
// optionally narrowed to one tag. Failures yield an empty collection.
func (c *Cloudinary) FetchCollection(ctx context.Context, tag string) shot.Collection {
	return c.collection(ctx, tag, c.cfg.Placeholders)
}

// ListCollection is FetchCollection without blur placeholders.
func (c *Cloudinary) ListCollection(ctx context.Context, tag string) shot.Collection {
	return c.collection(ctx, tag, false)
}

func (c *Cloudinary) collection(ctx context.Context, tag string, placeholders bool) shot.Collection {
	tag = shot.NormalizeScope(tag)
	expr := c.collectionExpression(tag)
	if tag != "" && !ValidTag(tag) {
		c.logFailure(ctx, "collection", expr, fmt.Errorf("provider: invalid tag %q", tag))
		return shot.Collection{}
	}

	shots, err := c.search(ctx, "collection", searchRequest{
		Expression: expr,
		SortBy:     []map[string]string{{"created_at": "desc"}},
		WithField:  []string{"tags", "context"},
		MaxResults: c.cfg.MaxResults,
	})
	if err != nil {
		c.logFailure(ctx, "collection", expr, err)
		return shot.Collection{}
	}
	if placeholders {
		c.attachPlaceholders(ctx, shots)
	}
	return shot.Collection(shots)
}

// FetchByID resolves a single shot by asset id. Not found and provider
// errors are indistinguishable to the caller.
func (c *Cloudinary) FetchByID(ctx context.Context, id string) (shot.Shot, bool) {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return shot.Shot{}, false
	}
	expr := "asset_id:" + id
	shots, err := c.search(ctx, "by_id", searchRequest{
		Expression: expr,
		WithField:  []string{"tags", "context"},
		MaxResults: 1,
	})
	if err != nil {
		c.logFailure(ctx, "by_id", expr, err)
		return shot.Shot{}, false
	}
	if len(shots) == 0 || shots[0].ID != id {
		return shot.Shot{}, false
	}
	return shots[0], true
}

// ImageURL builds a secure delivery URL. Absolute URLs pass through untouched.
func (c *Cloudinary) ImageURL(publicID string, t Transform) string {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return ""
	}
	if strings.HasPrefix(publicID, "http://") || strings.HasPrefix(publicID, "https://") {
		return publicID
	}
	segments := []string{c.cfg.DeliveryBase, url.PathEscape(c.cfg.CloudName), "image", "upload"}
	if tr := t.String(); tr != "" {
		segments = append(segments, tr)
	}
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(strings.Trim(publicID, "/"), "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return strings.Join(segments, "/") + "/" + strings.Join(escaped, "/")
}

func (c *Cloudinary) collectionExpression(tag string) string {
	expr := "folder:" + c.cfg.Folder + "/*"
	if tag != "" {
		expr += " AND tags:" + tag
	}
	return expr
}

type searchRequest struct {
	Expression string              `json:"expression"`
	SortBy     []map[string]string `json:"sort_by,omitempty"`
	WithField  []string            `json:"with_field,omitempty"`
	MaxResults int                 `json:"max_results"`
}

func (c *Cloudinary) search(ctx context.Context, op string, req searchRequest) ([]shot.Shot, error) {
	ctx, span := c.tracer.Start(ctx, "provider.search", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.operation", op),
		attribute.String("provider.expression", req.Expression),
	)
	c.count(ctx, c.requests, c.requestsEnabled, op)

	shots, err := c.doSearch(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		c.count(ctx, c.failures, c.failuresEnabled, op)
		return nil, err
	}
	span.SetAttributes(attribute.Int("provider.results", len(shots)))
	return shots, nil
}

func (c *Cloudinary) doSearch(ctx context.Context, req searchRequest) ([]shot.Shot, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	endpoint, err := url.JoinPath(c.cfg.APIBase, "v1_1", c.cfg.CloudName, "resources", "search")
	if err != nil {
		return nil, fmt.Errorf("provider: build search url: %w", err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("provider: encode search: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("provider: build search request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: read search response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider: search status %d: %s", resp.StatusCode, errorMessage(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("provider: search response is not valid json")
	}
	return c.decodeResources(gjson.GetBytes(body, "resources")), nil
}

func (c *Cloudinary) decodeResources(resources gjson.Result) []shot.Shot {
	shots := make([]shot.Shot, 0, int(resources.Get("#").Int()))
	resources.ForEach(func(_, res gjson.Result) bool {
		id := res.Get("asset_id").String()
		publicID := res.Get("public_id").String()
		if id == "" || publicID == "" {
			return true
		}
		tags := make([]string, 0, 4)
		for _, t := range res.Get("tags").Array() {
			tags = append(tags, t.String())
		}
		s := shot.Shot{
			ID:       id,
			PublicID: publicID,
			URL:      c.ImageURL(publicID, Display),
			Width:    int(res.Get("width").Int()),
			Height:   int(res.Get("height").Int()),
			Caption:  caption(res),
			Tags:     shot.NormalizeTags(tags),
			Format:   res.Get("format").String(),
			Bytes:    res.Get("bytes").Int(),
		}
		if ts, err := time.Parse(time.RFC3339, res.Get("created_at").String()); err == nil {
			s.CreatedAt = ts
		}
		shots = append(shots, s)
		return true
	})
	return shots
}

func caption(res gjson.Result) string {
	for _, p := range []string{"context.custom.caption", "context.caption"} {
		if v := strings.TrimSpace(res.Get(p).String()); v != "" {
			return v
		}
	}
	if v := res.Get("filename").String(); v != "" {
		return v
	}
	return path.Base(res.Get("public_id").String())
}

// attachPlaceholders downloads blurred renditions concurrently. A failed
// download only drops that shot's placeholder.
func (c *Cloudinary) attachPlaceholders(ctx context.Context, shots []shot.Shot) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PlaceholderWorkers)
	for i := range shots {
		g.Go(func() error {
			uri, err := c.placeholder(gctx, shots[i].PublicID)
			if err != nil {
				requestctx.Logger(ctx).Debug("provider: placeholder unavailable",
					zap.String("public_id", shots[i].PublicID), zap.Error(err))
				return nil
			}
			shots[i].BlurPlaceholder = uri
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Cloudinary) placeholder(ctx context.Context, publicID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ImageURL(publicID, Placeholder), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("placeholder status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (c *Cloudinary) logFailure(ctx context.Context, op, expr string, err error) {
	logger := requestctx.Logger(ctx)
	if logger == requestctx.NoopLogger() {
		logger = c.logger
	}
	logger.Warn("provider unavailable; serving empty result",
		zap.String("operation", op),
		zap.String("expression", expr),
		zap.Error(err),
	)
}

func (c *Cloudinary) count(ctx context.Context, counter metric.Int64Counter, enabled bool, op string) {
	if !enabled {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return msg
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
