package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
)

func decodeJSON(resp *http.Response, v interface{}) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func newBrokenWriter() *brokenWriter {
	return &brokenWriter{header: make(http.Header)}
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) WriteHeader(status int) { w.status = status }

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}
