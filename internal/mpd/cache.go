package mpd

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ArtSource is what ArtCache fetches through; *Client satisfies it.
type ArtSource interface {
	FindAlbumArt(ctx context.Context, uri string) (Picture, bool, error)
}

// artFetchTimeout bounds a shared fetch once no caller's ctx governs it.
const artFetchTimeout = 30 * time.Second

type artEntry struct {
	uri   string
	pic   Picture
	found bool
}

// ArtCache keeps the most recently used covers by song URI, including
// misses. Concurrent lookups of one URI share a single fetch.
type ArtCache struct {
	src  ArtSource
	size int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	group   singleflight.Group
}

// NewArtCache holds up to size entries. size <= 0 disables storage but keeps
// fetch deduplication.
func NewArtCache(src ArtSource, size int) *ArtCache {
	return &ArtCache{
		src:     src,
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the art for uri, fetching it at most once across concurrent
// callers. The shared fetch is detached from any one caller's cancellation;
// a caller whose ctx ends stops waiting without failing the others.
func (c *ArtCache) Get(ctx context.Context, uri string) (Picture, bool, error) {
	if e, ok := c.lookup(uri); ok {
		return e.pic, e.found, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(uri, func() (any, error) {
		// a fetch that finished between lookup and DoChan already stored it
		if e, ok := c.lookup(uri); ok {
			return e, nil
		}
		ctx, cancel := context.WithTimeout(fetchCtx, artFetchTimeout)
		defer cancel()
		pic, found, err := c.src.FindAlbumArt(ctx, uri)
		if err != nil {
			return nil, err
		}
		e := artEntry{uri: uri, pic: pic, found: found}
		c.store(e)
		return e, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Picture{}, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return Picture{}, false, res.Err
	}
	if res.Shared {
		log.Trace().Str("uri", uri).Msg("mpd.ArtCache shared in-flight fetch")
	}
	e := res.Val.(artEntry)
	return e.pic, e.found, nil
}

func (c *ArtCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *ArtCache) lookup(uri string) (artEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[uri]
	if !ok {
		return artEntry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(artEntry), true
}

func (c *ArtCache) store(e artEntry) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[e.uri]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.entries[e.uri] = c.order.PushFront(e)
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(artEntry).uri)
	}
}
