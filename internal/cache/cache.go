// Package cache stores successful query responses on disk so repeated
// collection runs over the same dataset skip the engine.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const entryExt = ".json.zst"

// Entry is what the cache remembers about one successful query.
type Entry struct {
	Response   string  `json:"response"`
	TokensUsed int     `json:"tokens_used"`
	LatencyMs  float64 `json:"latency_ms"`
}

// Cache provides caching for query responses
type Cache struct {
	dir string
	mu  sync.Mutex

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a new cache instance with the specified directory. An empty
// directory disables the cache.
func New(dir string) (*Cache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Cache{dir: dir, enc: enc, dec: dec}, nil
}

// Close releases the decoder's resources.
func (c *Cache) Close() {
	c.dec.Close()
}

// Key identifies a query. The key covers the engine, the model deployment,
// the system prompt and the query text.
func Key(engine, model, systemPrompt, query string) (string, error) {
	h := sha256.New()
	for _, s := range []string{engine, model, systemPrompt, query} {
		if err := writeString(h, s); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached response if it exists
func (c *Cache) Get(key string) (*Entry, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}

	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		// corrupt entries read as misses
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	return &e, true
}

// Put stores a response in the cache
func (c *Cache) Put(key string, e *Entry) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := os.WriteFile(c.entryPath(key), c.enc.EncodeAll(raw, nil), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes all cached responses. It refuses to touch a directory that
// holds anything other than cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) error {
	// null byte delimiter keeps ("ab","c") and ("a","bc") apart
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
