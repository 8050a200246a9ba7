package gatehousehttp

import (
	"bytes"
	"io"
)

// newBodyReader wraps a byte slice as the io.ReadCloser an *http.Response
// needs for its Body field.
func newBodyReader(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
