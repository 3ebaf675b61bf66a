package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-registration/internal/config"
)

// captureWriter tees the response into buf while forwarding it.  Once more
// than limit bytes were written the capture is abandoned.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the request parts selected by cfg.KeyStrategy under
// cfg.Prefix: "route", "method_route", "method_route_query" or
// "route_query" (default).
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// encode packs the entry as [4 bytes status][4 bytes header length]
// [header JSON][body].
func (r cachedResponse) encode() ([]byte, error) {
	hdr, err := json.Marshal(r.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(r.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(r.Status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], r.Body)
	return out, nil
}

var errBadEntry = errors.New("malformed cache entry")

func decodeCachedResponse(bs []byte) (cachedResponse, error) {
	if len(bs) < 8 {
		return cachedResponse{}, errBadEntry
	}
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return cachedResponse{}, errBadEntry
	}
	r := cachedResponse{Status: int(binary.BigEndian.Uint32(bs[0:4])), Header: http.Header{}}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &r.Header); err != nil {
			return cachedResponse{}, fmt.Errorf("%w: %v", errBadEntry, err)
		}
	}
	r.Body = bs[8+hlen:]
	return r, nil
}

func (r cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range r.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(r.Status)
	if len(r.Body) > 0 {
		_, err := c.Response().Write(r.Body)
		return err
	}
	return nil
}

// NewRedisCache caches successful responses for the configured methods in
// Redis.  Status, headers and body are stored together so a hit is
// byte-identical to the original response.  Only static catalog data should
// sit behind it; anything derived from live seat counts must not be cached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if hit, err := decodeCachedResponse(bs); err == nil {
					return hit.replay(c)
				}
				logger.Warn("cache: dropping malformed entry", slog.String("key", key))
			} else if !errors.Is(err, redis.Nil) {
				logger.Warn("cache: redis get failed", slog.String("key", key), slog.String("error", err.Error()))
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}
			entry := cachedResponse{Status: cw.status, Header: c.Response().Header().Clone(), Body: cw.buf.Bytes()}
			payload, err := entry.encode()
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err(); err != nil {
				logger.Warn("cache: redis set failed", slog.String("key", key), slog.String("error", err.Error()))
			}
			return nil
		}
	}
}
