package gatehousehttp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// AccessLogFields carries everything needed to render one NCSA combined
// log line. Method/URI/Protocol are taken from the original request line
// (RequestContext.OriginalMethod/OriginalURI), not from any
// sanitized/rewritten form, so the line always reflects what the client
// sent on the wire.
type AccessLogFields struct {
	ClientIP          string
	AuthenticatedUser string // empty means "-"
	When              time.Time
	Method            string
	URI               string
	Protocol          string
	Status            int
	ContentLength     *int64 // nil means unknown; renders "-"
	BodySizeHint      *int64 // fallback used only when ContentLength is nil
	Referrer          string
	UserAgent         string
}

// FormatCombined renders the NCSA combined access log line (no trailing
// newline) for fields, matching ferron's log_combined exactly: a dash
// for an empty user, referrer or user-agent and for an unknown content
// length, and backslash-escaped quotes and backslashes in the referrer
// and user-agent fields. Other fields are written as given.
func FormatCombined(f AccessLogFields) string {
	user := "-"
	if f.AuthenticatedUser != "" {
		user = f.AuthenticatedUser
	}
	referrer := "-"
	if f.Referrer != "" {
		referrer = escapeQuoted(f.Referrer)
	}
	ua := "-"
	if f.UserAgent != "" {
		ua = escapeQuoted(f.UserAgent)
	}

	return fmt.Sprintf(
		"%s - %s [%s] \"%s %s %s\" %d %s \"%s\" \"%s\"",
		f.ClientIP,
		user,
		f.When.Format("02/Jan/2006:15:04:05 -0700"),
		f.Method, f.URI, f.Protocol,
		f.Status,
		contentLengthField(f.ContentLength, f.BodySizeHint),
		referrer,
		ua,
	)
}

// contentLengthField implements the three-tier fallback preserved per
// spec.md §9 / DESIGN.md open question 1: the parsed Content-Length
// header, else the response body's size hint, else a dash.
func contentLengthField(contentLength, bodySizeHint *int64) string {
	if contentLength != nil {
		return strconv.FormatInt(*contentLength, 10)
	}
	if bodySizeHint != nil {
		return strconv.FormatInt(*bodySizeHint, 10)
	}
	return "-"
}

func escapeQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// ContentLengthFromResponse extracts the Content-Length header and body
// size hint from resp for use with FormatCombined. A present but
// unparseable header is treated the same as an absent one (falls
// through to the body size hint), matching the original's behavior.
func ContentLengthFromResponse(resp *http.Response) (contentLength, bodySizeHint *int64) {
	if resp == nil {
		return nil, nil
	}
	if h := resp.Header.Get("Content-Length"); h != "" {
		if n, err := strconv.ParseInt(h, 10, 64); err == nil {
			return &n, nil
		}
	}
	if resp.ContentLength >= 0 {
		n := resp.ContentLength
		return nil, &n
	}
	return nil, nil
}
