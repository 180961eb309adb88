package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hrygo/finsense/ai/cache"
	"github.com/hrygo/finsense/ai/metrics"
)

const (
	defaultCacheCapacity = 500
	defaultCacheTTL      = 30 * time.Minute
)

// CachedClassifier memoizes successful results of another classifier.
type CachedClassifier struct {
	next    Classifier
	name    string
	cache   *cache.LRUCache[string, []Score]
	metrics *metrics.PrometheusExporter
}

// NewCachedClassifier wraps next with an LRU result cache.
func NewCachedClassifier(next Classifier, name string, exporter *metrics.PrometheusExporter) *CachedClassifier {
	return &CachedClassifier{
		next:    next,
		name:    name,
		cache:   cache.NewLRUCache[string, []Score](defaultCacheCapacity, defaultCacheTTL),
		metrics: exporter,
	}
}

func (c *CachedClassifier) Classify(ctx context.Context, text string, labels []string) ([]Score, error) {
	key := cacheKey(text, labels)
	if scores, ok := c.cache.Get(key); ok {
		c.metrics.RecordClassifierCache(true)
		return append([]Score(nil), scores...), nil
	}
	c.metrics.RecordClassifierCache(false)

	start := time.Now()
	scores, err := c.next.Classify(ctx, text, labels)
	c.metrics.RecordClassifierLatency(c.name, time.Since(start))
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, append([]Score(nil), scores...))
	return scores, nil
}

func cacheKey(text string, labels []string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(labels, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
