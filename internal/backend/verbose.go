package backend

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const truncateAt = 100

func (c *Client) logRequest(method, url string, body []byte) {
	if !c.verbose {
		return
	}
	attrs := []any{slog.String("method", method), slog.String("url", url)}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", string(truncateMediaInJSON(body))))
	}
	c.log.Debug("request", attrs...)
}

func (c *Client) logResponse(method, url string, status int, elapsed time.Duration, body []byte) {
	if !c.verbose {
		return
	}
	c.log.Debug("response",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", status),
		slog.Duration("elapsed", elapsed),
		slog.String("body", string(truncateMediaInJSON(body))),
	)
}

// truncateMediaInJSON shortens inline image payloads so request logs stay
// readable. Bodies that are not JSON are returned unchanged.
func truncateMediaInJSON(body []byte) []byte {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	data = truncateMedia(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateMedia(value any) any {
	switch v := value.(type) {
	case string:
		if len(v) > truncateAt && (strings.HasPrefix(v, "data:") || isBase64Like(v)) {
			return v[:truncateAt] + "... [truncated]"
		}
	case map[string]any:
		for key, item := range v {
			v[key] = truncateMedia(item)
		}
	case []any:
		for i, item := range v {
			v[i] = truncateMedia(item)
		}
	}
	return value
}

func isBase64Like(s string) bool {
	if strings.ContainsAny(s, " \n\t") {
		return false
	}
	for _, r := range s[:truncateAt] {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '+', r == '/', r == '=':
		default:
			return false
		}
	}
	return true
}
