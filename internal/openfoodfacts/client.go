// Package openfoodfacts looks products up by barcode in the Open Food Facts
// database and normalizes them into catalog foods.
package openfoodfacts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/httpclient"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

const (
	DefaultBaseURL   = "https://world.openfoodfacts.org"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 100 // requests per minute

	maxBodySize = 4 << 20
)

// Reasons attached to not-found errors under the "reason" context key.
const (
	ReasonNetwork     = "network"
	ReasonStatus      = "status"
	ReasonMalformed   = "malformed"
	ReasonUnavailable = "unavailable"
	ReasonRateLimit   = "rate_limit"
)

// Config configures a Client. Zero values take the defaults above.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int // requests per minute, negative disables the limiter
	UserAgent string
	Locale    language.Tag // language of the unnamed-product placeholder

	Transport http.RoundTripper // tests install httpmock here
	Logger    *slog.Logger
	Metrics   *metrics.LookupMetrics
}

// Client queries the product API. It never retries.
type Client struct {
	http    *httpclient.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	locale  language.Tag
	logger  *slog.Logger
	metrics *metrics.LookupMetrics
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Locale == language.Und {
		cfg.Locale = language.Spanish
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.ForService("openfoodfacts")
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimit)), 1)
	}

	return &Client{
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			UserAgent:      cfg.UserAgent,
			Transport:      cfg.Transport,
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: limiter,
		locale:  cfg.Locale,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// Lookup fetches the product with barcode. Every failure, from transport
// errors to products without data, is reported as a not-found error whose
// "reason" context tells them apart.
func (c *Client) Lookup(ctx context.Context, barcode string) (food *nutrition.Food, err error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, errors.Newf("barcode is required").
			Component("openfoodfacts").
			Category(errors.CategoryValidation).
			Context("field", "barcode").
			Build()
	}

	start := time.Now()
	reason := ""
	defer func() {
		c.metrics.RecordLookup(reason, time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	fail := func(r string, cause error) (*nutrition.Food, error) {
		reason = r
		c.logger.Info("product lookup failed", "barcode", barcode, "reason", r, "error", cause)
		return nil, c.notFound(barcode, r, endpoint, cause)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(ReasonRateLimit, err)
		}
	}

	c.logger.Debug("looking up product", "barcode", barcode, "url", endpoint)

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return fail(ReasonNetwork, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fail(ReasonStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fail(ReasonNetwork, err)
	}

	doc, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return fail(ReasonMalformed, err)
	}
	if status, err := doc.GetInt64("status"); err != nil || status != 1 {
		return fail(ReasonUnavailable, fmt.Errorf("product status is not 1"))
	}
	product, err := doc.GetObject("product")
	if err != nil {
		return fail(ReasonMalformed, err)
	}

	food = c.normalize(barcode, product)
	c.logger.Info("product found", "barcode", barcode, "name", food.Name)
	return food, nil
}

func (c *Client) normalize(barcode string, product *jason.Object) *nutrition.Food {
	food := &nutrition.Food{Barcode: barcode}

	if nutriments, err := product.GetObject("nutriments"); err == nil {
		food.KcalPer100g = number(nutriments, "energy-kcal_100g")
		food.KcalServing = number(nutriments, "energy-kcal_serving")
	}

	servingSize, _ := product.GetString("serving_size")
	food.ServingGrams = ServingGrams(servingSize)

	brands, _ := product.GetString("brands")
	food.Brand = strings.TrimSpace(strings.Split(brands, ",")[0])

	name, _ := product.GetString("product_name")
	food.Name = productName(name)
	if food.Name == "" {
		food.Name = nutrition.UnnamedProduct(c.locale)
	}
	return food
}

// markup matches an HTML tag or character reference. "<3" and a bare "&" are
// plain text.
var markup = regexp.MustCompile(`<[a-zA-Z/!][^>]*>|&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

// productName cleans a product_name field. Only names carrying markup go
// through html2text so plain names keep their literal text.
func productName(raw string) string {
	if !markup.MatchString(raw) {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(html2text.HTML2Text(raw))
}

// ServingGrams parses a serving size such as "30 g". Only sizes ending in
// "g" are understood; "1 kg" or "2 oz" yield nil.
func ServingGrams(size string) *float64 {
	s := strings.ToLower(strings.TrimSpace(size))
	if !strings.HasSuffix(s, "g") {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, "g", "")), 64)
	if err != nil {
		return nil
	}
	return finite(v)
}

// number reads a JSON number or numeric string.
func number(obj *jason.Object, key string) *float64 {
	v, err := obj.GetValue(key)
	if err != nil {
		return nil
	}
	if f, err := v.Float64(); err == nil {
		return finite(f)
	}
	if s, err := v.String(); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return finite(f)
		}
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

func (c *Client) notFound(barcode, reason, endpoint string, cause error) error {
	b := errors.New(fmt.Errorf("product %s not found: %w", barcode, cause)).
		Component("openfoodfacts").
		Category(errors.CategoryNotFound).
		Context("barcode", barcode).
		Context("reason", reason)
	if reason == ReasonNetwork || reason == ReasonRateLimit {
		b = b.NetworkContext(endpoint, c.timeout)
	}
	return b.Build()
}
