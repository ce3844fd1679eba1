package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      `mapstructure:"min_size"`
	CompressionLevel int      `mapstructure:"level"`
	ContentTypes     []string `mapstructure:"content_types"`
	// ExcludedPaths are prefixes served as-is. /metrics compresses itself.
	ExcludedPaths []string `mapstructure:"excluded_paths"`
}

func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes:     []string{"application/json", "text/plain"},
		ExcludedPaths:    []string{"/metrics", "/swagger/"},
	}
}

// Compressor gzips large JSON responses for clients that accept it.
type Compressor struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

func NewCompressor(config CompressionConfig) *Compressor {
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &Compressor{
		config: config,
		stats:  &CompressionStats{},
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

func (cm *Compressor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !acceptsGzip(c.Request) || cm.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		original := c.Writer
		w := &gzipWriter{ResponseWriter: original, cm: cm, status: http.StatusOK}
		c.Writer = w
		// On panic the buffered body is dropped so recovery can write its own.
		defer func() { c.Writer = original }()

		c.Next()
		w.finish()
	}
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *Compressor) excluded(path string) bool {
	for _, prefix := range cm.config.ExcludedPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (cm *Compressor) compressible(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}
	contentType := h.Get("Content-Type")
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

func (cm *Compressor) Stats() map[string]interface{} {
	return cm.stats.GetStats()
}

// gzipWriter buffers the body until it reaches MinSize. Smaller responses
// go out untouched when the handler returns.
type gzipWriter struct {
	gin.ResponseWriter
	cm     *Compressor
	status int
	buf    bytes.Buffer

	gz          *gzip.Writer
	counter     *countingWriter
	passthrough bool
	raw         int64
}

func (w *gzipWriter) WriteHeader(code int) {
	if w.gz == nil && !w.passthrough {
		w.status = code
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

// WriteHeaderNow commits to an uncompressed response.
func (w *gzipWriter) WriteHeaderNow() {
	if w.gz == nil && !w.passthrough {
		w.flushPlain()
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *gzipWriter) Status() int {
	if w.gz == nil && !w.passthrough {
		return w.status
	}
	return w.ResponseWriter.Status()
}

func (w *gzipWriter) Written() bool {
	return w.buf.Len() > 0 || w.ResponseWriter.Written()
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	switch {
	case w.gz != nil:
		w.raw += int64(len(data))
		return w.gz.Write(data)
	case w.passthrough:
		return w.ResponseWriter.Write(data)
	}

	n, _ := w.buf.Write(data)
	if w.buf.Len() >= w.cm.config.MinSize {
		if err := w.start(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// start decides between gzip and passthrough once enough of the body is
// known, and drains the buffer.
func (w *gzipWriter) start() error {
	if !w.cm.compressible(w.Header()) {
		return w.flushPlain()
	}

	h := w.Header()
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)

	w.counter = &countingWriter{w: w.ResponseWriter}
	w.gz = w.cm.pool.Get().(*gzip.Writer)
	w.gz.Reset(w.counter)

	w.raw = int64(w.buf.Len())
	_, err := w.gz.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *gzipWriter) flushPlain() error {
	w.passthrough = true
	w.ResponseWriter.WriteHeader(w.status)
	if w.buf.Len() == 0 {
		return nil
	}
	n := int64(w.buf.Len())
	_, err := w.ResponseWriter.Write(w.buf.Bytes())
	w.buf.Reset()
	w.cm.stats.RecordRequest(n, n, false)
	return err
}

func (w *gzipWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipWriter) finish() {
	if w.gz != nil {
		_ = w.gz.Close()
		w.cm.pool.Put(w.gz)
		w.gz = nil
		w.cm.stats.RecordRequest(w.raw, w.counter.n, true)
		return
	}
	if !w.passthrough {
		_ = w.flushPlain()
		w.ResponseWriter.WriteHeaderNow()
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

func (cs *CompressionStats) RecordRequest(originalSize, writtenSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize
	if compressed {
		cs.CompressedRequests++
	}
	cs.CompressedBytes += writtenSize
}

func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	ratio := float64(1)
	if cs.TotalBytes > 0 {
		ratio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"written_bytes":       cs.CompressedBytes,
		"compression_ratio":   ratio,
	}
}
