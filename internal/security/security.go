package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// Config holds the request hygiene settings shared by the middlewares in
// this package.
type Config struct {
	MaxInputLength int           `mapstructure:"max_input_length"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	EnableHSTS     bool          `mapstructure:"enable_hsts"`
}

func DefaultConfig() Config {
	return Config{
		MaxInputLength: 2000,
		RequestTimeout: 45 * time.Second,
	}
}

var (
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// SanitizeInput strips markup from free text and collapses whitespace.
func SanitizeInput(input string) string {
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = spacePattern.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateInput rejects text that is too long, not UTF-8, or carries NUL
// bytes. Content is otherwise free-form.
func (c Config) ValidateInput(input string) error {
	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("input contains invalid characters")
	}
	if c.MaxInputLength > 0 && utf8.RuneCountInString(input) > c.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", c.MaxInputLength)
	}
	return nil
}

var allowedContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// ValidateContentType rejects bodies that are not JSON or form encoded.
// Requests without a Content-Type pass through.
func ValidateContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		contentType := strings.ToLower(c.GetHeader("Content-Type"))
		if contentType == "" {
			c.Next()
			return
		}

		for _, allowed := range allowedContentTypes {
			if strings.Contains(contentType, allowed) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported content type",
		})
	}
}

// RequestTimeout bounds the request context. Handlers observe the deadline
// through c.Request.Context().
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Timeout", strconv.Itoa(int(timeout.Seconds())))

		c.Next()
	}
}
