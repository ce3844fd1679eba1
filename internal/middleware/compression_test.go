package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCompressedRouter(cm *Compressor) *gin.Engine {
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/vendors", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": strings.Repeat("vendor ", 400)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	r.GET("/text", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte(strings.Repeat("x", 4096)))
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, strings.Repeat("metric 1\n", 500))
	})
	r.GET("/empty", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNoContent)
	})
	return r
}

func TestCompressionHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		wantStatus     int
		wantGzip       bool
	}{
		{"large json is compressed", "/vendors", "gzip, deflate", http.StatusOK, true},
		{"client without gzip", "/vendors", "", http.StatusOK, false},
		{"below minimum size", "/small", "gzip", http.StatusCreated, false},
		{"content type not listed", "/text", "gzip", http.StatusOK, false},
		{"excluded path", "/metrics", "gzip", http.StatusOK, false},
		{"status only", "/empty", "gzip", http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newCompressedRouter(NewCompressor(DefaultCompressionConfig()))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantGzip {
				assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
				assert.Contains(t, w.Header().Get("Vary"), "Accept-Encoding")
			} else {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
			}
		})
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	r := newCompressedRouter(cm)

	req := httptest.NewRequest(http.MethodGet, "/vendors", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	compressedLen := w.Body.Len()

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.Contains(t, string(body), `"data":"vendor vendor`)
	assert.Less(t, compressedLen, len(body))

	stats := cm.Stats()
	assert.Equal(t, int64(1), stats["total_requests"])
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Equal(t, int64(len(body)), stats["total_bytes"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
}

func TestCompressionSmallBodyUntouched(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	r := newCompressedRouter(cm)

	req := httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	stats := cm.Stats()
	assert.Equal(t, int64(1), stats["total_requests"])
	assert.Equal(t, int64(0), stats["compressed_requests"])
}

func TestNewCompressorClampsLevel(t *testing.T) {
	cfg := DefaultCompressionConfig()
	cfg.CompressionLevel = 42
	cm := NewCompressor(cfg)

	gz, ok := cm.pool.Get().(*gzip.Writer)
	require.True(t, ok)
	assert.NotNil(t, gz)
}
