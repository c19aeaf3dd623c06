// Package cache provides the volatile fast-cache tier. Entries are disposable
// projections of the persistent store; losing the cache costs performance,
// never correctness.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a TTL-capable key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key namespaces, one per cached kind.
const (
	nsChannelMeta     = "channel_meta:"
	nsChannelAnalysis = "channel_analysis:"
	nsVideoList       = "video_list:"
	nsURLMapping      = "channel_url:"
)

// TTLs configures per-kind time-to-live values.
type TTLs struct {
	ChannelMeta     time.Duration
	ChannelAnalysis time.Duration
	VideoList       time.Duration
	URLMapping      time.Duration
}

// Cache wraps a Store with typed, namespaced accessors for the kinds of
// records the resolution engine caches.
type Cache struct {
	store Store
	ttls  TTLs
}

// New creates a Cache over the given store.
func New(store Store, ttls TTLs) *Cache {
	return &Cache{store: store, ttls: ttls}
}

// GetAnalysis retrieves a cached channel analysis.
func (c *Cache) GetAnalysis(ctx context.Context, channelID string) (*models.ChannelAnalysis, error) {
	var analysis models.ChannelAnalysis
	if err := c.getJSON(ctx, nsChannelAnalysis+channelID, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// SetAnalysis caches a channel analysis.
func (c *Cache) SetAnalysis(ctx context.Context, analysis *models.ChannelAnalysis) error {
	return c.setJSON(ctx, nsChannelAnalysis+analysis.ChannelID, analysis, c.ttls.ChannelAnalysis)
}

// GetChannel retrieves cached channel metadata.
func (c *Cache) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	var channel models.Channel
	if err := c.getJSON(ctx, nsChannelMeta+channelID, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// SetChannel caches channel metadata.
func (c *Cache) SetChannel(ctx context.Context, channel *models.Channel) error {
	return c.setJSON(ctx, nsChannelMeta+channel.ChannelID, channel, c.ttls.ChannelMeta)
}

// GetVideoList retrieves a cached video-list snapshot for a channel.
func (c *Cache) GetVideoList(ctx context.Context, channelID string) ([]*models.Video, error) {
	var videos []*models.Video
	if err := c.getJSON(ctx, nsVideoList+channelID, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// SetVideoList caches a video-list snapshot.
func (c *Cache) SetVideoList(ctx context.Context, channelID string, videos []*models.Video) error {
	return c.setJSON(ctx, nsVideoList+channelID, videos, c.ttls.VideoList)
}

// GetURLMapping retrieves the channel ID previously resolved for a URL.
func (c *Cache) GetURLMapping(ctx context.Context, rawURL string) (string, error) {
	data, err := c.store.Get(ctx, nsURLMapping+hashURL(rawURL))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetURLMapping caches a URL to channel ID resolution.
func (c *Cache) SetURLMapping(ctx context.Context, rawURL, channelID string) error {
	return c.store.Set(ctx, nsURLMapping+hashURL(rawURL), []byte(channelID), c.ttls.URLMapping)
}

// InvalidateChannel removes all cached entries for a channel.
func (c *Cache) InvalidateChannel(ctx context.Context, channelID string) error {
	var firstErr error
	for _, key := range []string{
		nsChannelMeta + channelID,
		nsChannelAnalysis + channelID,
		nsVideoList + channelID,
	} {
		if err := c.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt entry is as good as a miss; the store is authoritative.
		_ = c.store.Delete(ctx, key)
		return fmt.Errorf("decode cached %s: %w", key, ErrCacheMiss)
	}
	return nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

func hashURL(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}
