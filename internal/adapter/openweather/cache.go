package openweather

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CachedWeather wraps a WeatherProvider with an in-memory LRU cache whose
// entries expire after a fixed TTL.
type CachedWeather struct {
	inner   domain.WeatherProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedWeather creates a cache decorator around a weather provider.
func NewCachedWeather(inner domain.WeatherProvider, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedWeather {
	return &CachedWeather{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedWeather) WeatherByPlace(ctx context.Context, place string) (domain.WeatherReport, error) {
	key := "place:" + foldPlace(place)
	return c.lookup(key, domain.WeatherByPlace, func() (domain.WeatherReport, error) {
		return c.inner.WeatherByPlace(ctx, place)
	})
}

func (c *CachedWeather) WeatherByCoordinates(ctx context.Context, coords domain.Coordinates) (domain.WeatherReport, error) {
	// Four decimals is roughly 11 m, well inside one stadium.
	key := fmt.Sprintf("coords:%.4f,%.4f", coords.Lat, coords.Lon)
	return c.lookup(key, domain.WeatherByCoordinates, func() (domain.WeatherReport, error) {
		return c.inner.WeatherByCoordinates(ctx, coords)
	})
}

func (c *CachedWeather) lookup(key, method string, fetch func() (domain.WeatherReport, error)) (domain.WeatherReport, error) {
	if report, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues(method, "hit").Inc()
		return report, nil
	}
	c.metrics.WeatherCache.WithLabelValues(method, "miss").Inc()

	report, err := fetch()
	if err != nil {
		return report, err
	}
	c.cache.put(key, report)
	return report, nil
}

// foldPlace normalizes a place name so "Balaídos, Vigo" and "BALAIDOS,  vigo"
// share a cache entry. Chained transformers are stateful, so one is built per call.
func foldPlace(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// lruCache is a thread-safe LRU cache of WeatherReports with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     domain.WeatherReport
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.WeatherReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherReport{}, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return domain.WeatherReport{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.WeatherReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
