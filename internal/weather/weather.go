// Package weather answers weather questions from the OpenWeather
// current-weather endpoint.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "http://api.openweathermap.org/data/2.5/weather"
	DefaultCity     = "Lucknow"
	DefaultTimeout  = 6 * time.Second
	DefaultCacheTTL = 10 * time.Minute

	defaultPerMinute = 30
	defaultCacheSize = 128
)

const (
	missingKeyReply  = "OpenWeather API key not set. Please set OPENWEATHER_API_KEY environment variable."
	timeoutReply     = "Weather service timed out."
	errorReply       = "Error fetching weather info."
	rateLimitedReply = "Too many weather requests. Try again in a minute."
	notFoundReplyFmt = "Weather info for '%s' not found."
)

var (
	ErrNotFound    = errors.New("weather: city not found")
	ErrRateLimited = errors.New("weather: rate limit exceeded")
	ErrNoAPIKey    = errors.New("weather: api key not set")

	cityPattern     = regexp.MustCompile(`\bin\s+(.+)`)
	trailingPattern = regexp.MustCompile(`\b(today|now|please)\b`)
)

// Report is the subset of a current-weather response that gets spoken.
type Report struct {
	City        string
	Description string
	Temp        float64
	FeelsLike   float64
	Humidity    int
}

func (r Report) String() string {
	return fmt.Sprintf("The weather in %s is %s with %s°C (feels like %s°C), humidity %d%%.",
		titleCase(r.City), capitalize(r.Description), formatFloat(r.Temp), formatFloat(r.FeelsLike), r.Humidity)
}

type Options struct {
	APIKey      string
	BaseURL     string
	DefaultCity string
	Timeout     time.Duration
	CacheTTL    time.Duration
	// RequestsPerMinute caps outbound calls. Cached answers are not counted.
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	cache   *expirable.LRU[string, Report]
	limiter *rate.Limiter
	log     *zap.Logger

	mu       sync.Mutex
	lastCity string
}

func New(opts Options) *Client {
	c := &Client{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		log:      opts.Logger,
		lastCity: strings.ToLower(strings.TrimSpace(opts.DefaultCity)),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.lastCity == "" {
		c.lastCity = strings.ToLower(DefaultCity)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c.cache = expirable.NewLRU[string, Report](defaultCacheSize, nil, ttl)
	perMin := opts.RequestsPerMinute
	if perMin <= 0 {
		perMin = defaultPerMinute
	}
	c.limiter = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), max(1, perMin/10))
	return c
}

// Answer resolves the city named in query (or the last one asked about)
// and returns a sentence suitable for speaking. It never fails.
func (c *Client) Answer(ctx context.Context, query string) string {
	if c.apiKey == "" {
		return missingKeyReply
	}
	city := c.resolveCity(query)

	report, err := c.Current(ctx, city)
	switch {
	case err == nil:
		return report.String()
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf(notFoundReplyFmt, city)
	case errors.Is(err, ErrRateLimited):
		return rateLimitedReply
	case isTimeout(err):
		return timeoutReply
	default:
		c.log.Warn("weather lookup failed", zap.String("city", city), zap.Error(err))
		return errorReply
	}
}

// Current fetches the current weather for city, serving repeated
// questions from the cache.
func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	if c.apiKey == "" {
		return Report{}, ErrNoAPIKey
	}
	key := strings.ToLower(strings.TrimSpace(city))
	if r, ok := c.cache.Get(key); ok {
		return r, nil
	}
	if !c.limiter.Allow() {
		return Report{}, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report, err := c.fetch(ctx, key)
	if err != nil {
		return Report{}, err
	}
	c.cache.Add(key, report)
	return report, nil
}

type apiResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Message string `json:"message"`
}

func (c *Client) fetch(ctx context.Context, city string) (Report, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Report{}, ErrNotFound
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decode weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather api status %d: %s", resp.StatusCode, body.Message)
	}

	report := Report{
		City:      city,
		Temp:      body.Main.Temp,
		FeelsLike: body.Main.FeelsLike,
		Humidity:  body.Main.Humidity,
	}
	if len(body.Weather) == 0 {
		return Report{}, fmt.Errorf("weather response for %s has no conditions", city)
	}
	report.Description = body.Weather[0].Description
	return report, nil
}

func (c *Client) resolveCity(query string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if city, ok := ExtractCity(query); ok {
		c.lastCity = city
	}
	return c.lastCity
}

// LastCity is the city used when a query names none.
func (c *Client) LastCity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCity
}

// ExtractCity returns the lower-cased text after "in", with trailing
// filler words removed.
func ExtractCity(query string) (string, bool) {
	m := cityPattern.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return "", false
	}
	city := trailingPattern.ReplaceAllString(m[1], "")
	city = strings.Join(strings.Fields(city), " ")
	city = strings.TrimSpace(strings.Trim(city, "?.!,"))
	if city == "" {
		return "", false
	}
	return city, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return "unclear"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
