package gatehousehttp

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
)

// GenerateErrorResponse builds the response body for status, preferring
// an operator-configured override from cfg.ErrorPages (matched by exact
// code, falling back to a leading-digit class match, e.g. 4 for any
// 4xx), and falling back to a generated default page when no override
// is configured or the configured file can't be opened. The extra
// headers passed in headers (e.g. from a handler's outcome) are copied
// except Content-Type/Content-Length, which this function always sets
// itself.
func GenerateErrorResponse(cfg *EffectiveConfig, status int, headers http.Header) *http.Response {
	body := lookupErrorPage(cfg, status)

	h := http.Header{}
	for k, v := range headers {
		if k == "Content-Type" || k == "Content-Length" {
			continue
		}
		h[k] = v
	}
	h.Set("Content-Type", "text/html")
	h.Set("Content-Length", strconv.Itoa(len(body)))

	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          newBodyReader(body),
		ContentLength: int64(len(body)),
	}
}

func lookupErrorPage(cfg *EffectiveConfig, status int) []byte {
	if cfg != nil {
		class := status / 100
		var classMatch string
		for _, ep := range cfg.ErrorPages {
			if ep.Code == status {
				if b, err := os.ReadFile(ep.Path); err == nil {
					return b
				}
				continue
			}
			if ep.Code == class {
				classMatch = ep.Path
			}
		}
		if classMatch != "" {
			if b, err := os.ReadFile(classMatch); err == nil {
				return b
			}
		}
	}
	admin := ""
	if cfg != nil {
		admin = cfg.ServerAdministratorEmail
	}
	return []byte(defaultErrorPage(status, admin))
}

func defaultErrorPage(status int, adminEmail string) string {
	text := http.StatusText(status)
	contact := ""
	if adminEmail != "" {
		contact = fmt.Sprintf("<p>Please contact <a href=\"mailto:%s\">%s</a> if the problem persists.</p>", adminEmail, adminEmail)
	}
	return fmt.Sprintf(
		"<!DOCTYPE html><html><head><title>%d %s</title></head><body><h1>%d %s</h1>%s</body></html>",
		status, text, status, text, contact,
	)
}
