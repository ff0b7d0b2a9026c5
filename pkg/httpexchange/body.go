package httpexchange

import (
	"io"
	"net/http"
)

// MaxRequestBodySize bounds how much of a request body is read into
// memory for matching and capture, guarding against oversized bodies.
const MaxRequestBodySize = 10 << 20 // 10MB

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	return data, nil
}
