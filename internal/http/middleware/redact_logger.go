// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger for the intake API.
// Brief authors routinely paste contact details into their messages, and some
// of that leaks into query strings and headers (support tooling, retries from
// curl). The logger scrubs the obvious identifiers before anything reaches
// the log stream.
//
// What it does:
//   - Never logs request or response bodies
//   - Pattern-redacts emails, phone numbers, and UUID-shaped identifiers
//     from query strings and header values
//   - Fully masks sensitive headers (Authorization, Cookie, Set-Cookie, plus
//     any names supplied by the caller)
//   - Emits one structured zerolog line per request
//
// Scrubbing is best effort. Clients should still keep PII out of query
// strings and headers where they can; this is the backstop, not the policy.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions tunes the scrubbing applied by RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced whole with
// "[REDACTED]". Matching is case-insensitive; the built-in set
// (Authorization, Cookie, Set-Cookie) is always included.
type RedactOptions struct {
	MaskHeaders []string
}

// Identifier patterns, compiled once. UUIDs must be scrubbed before phone
// numbers: the phone pattern is loose enough to match the digit runs inside
// a UUID.
var (
	reUUID  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	reEmail = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs from UUIDs cannot match. Covers forms like
	// "+1 212-555-1212", "212 555 1212", "(212) 555-1212".
	rePhone = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrub applies the identifier patterns in UUID, email, phone order.
func scrub(s string) string {
	if s == "" {
		return s
	}
	out := reUUID.ReplaceAllString(s, "[REDACTED:id]")
	out = reEmail.ReplaceAllString(out, "[REDACTED:email]")
	return rePhone.ReplaceAllString(out, "[REDACTED:phone]")
}

// RedactingLogger returns a Gin middleware that logs each request with
// sensitive values scrubbed.
//
// Every line carries the method, route pattern (raw URL path when the route
// did not match), scrubbed query string, status, response size, latency,
// request id, and the scrubbed request headers. The level follows the
// status: info below 400, warn for 4xx, error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := scrub(c.Request.URL.RawQuery)

		headers := make(map[string]string, len(c.Request.Header))
		for name, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(name)]; ok {
				headers[name] = "[REDACTED]"
				continue
			}
			headers[name] = scrub(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()

		// Prefer the id RequestID() stamped on the response; fall back to
		// whatever the client sent.
		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
