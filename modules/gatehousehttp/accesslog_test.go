package gatehousehttp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatCombinedBasic(t *testing.T) {
	when := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cl := int64(4)
	line := FormatCombined(AccessLogFields{
		ClientIP:      "203.0.113.1",
		When:          when,
		Method:        "GET",
		URI:           "/",
		Protocol:      "HTTP/1.1",
		Status:        200,
		ContentLength: &cl,
	})

	require.True(t, strings.HasPrefix(line, "203.0.113.1 - - ["))
	require.Contains(t, line, `"GET / HTTP/1.1"`)
	require.Contains(t, line, " 200 4 ")
	require.True(t, strings.HasSuffix(line, `"-" "-"`))
}

func TestFormatCombinedEscapesQuotesAndBackslashes(t *testing.T) {
	line := FormatCombined(AccessLogFields{
		ClientIP: "10.0.0.1",
		Method:   "GET",
		URI:      "/",
		Protocol: "HTTP/1.1",
		Status:   200,
		Referrer: `http://evil.example/"; DROP\`,
	})
	require.Contains(t, line, `\"`)
	require.Contains(t, line, `\\`)
}

func TestContentLengthFieldFallback(t *testing.T) {
	hint := int64(99)
	require.Equal(t, "-", contentLengthField(nil, nil))
	require.Equal(t, "99", contentLengthField(nil, &hint))
	cl := int64(5)
	require.Equal(t, "5", contentLengthField(&cl, &hint))
}
