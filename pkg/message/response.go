package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrInvalidHeader indicates a stored header name or value cannot be
	// placed on the wire.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrInvalidStatus indicates a stored status code outside 100..999.
	ErrInvalidStatus = errors.New("invalid status code")
)

// Response is the storable form of an HTTP response.
type Response struct {
	Status  int               `json:"status"`
	Version string            `json:"version"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// NewResponse drains resp into a Response and closes its body.
// A body that cannot be read or is not valid UTF-8 is stored as "".
func NewResponse(resp *http.Response) Response {
	out := Response{
		Status:  resp.StatusCode,
		Version: VersionString(resp.ProtoMajor, resp.ProtoMinor),
		Headers: flatten(resp.Header),
	}
	if resp.Body == nil {
		return out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && utf8.Valid(body) {
		out.Body = string(body)
	}
	return out
}

// Marshal encodes r as JSON.
func (r Response) Marshal() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes a Response previously produced by Marshal.
func Unmarshal(s string) (Response, error) {
	var r Response
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if r.Version == "" {
		r.Version = HTTP11
	}
	return r, nil
}

// HTTPResponse rebuilds an *http.Response from r.
func (r Response) HTTPResponse() (*http.Response, error) {
	if r.Status < 100 || r.Status > 999 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, r.Status)
	}

	header := make(http.Header, len(r.Headers))
	for name, value := range r.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: value of %q", ErrInvalidHeader, name)
		}
		header.Set(name, value)
	}

	major, minor := ParseVersion(r.Version)
	status := strconv.Itoa(r.Status)
	if text := http.StatusText(r.Status); text != "" {
		status += " " + text
	}

	return &http.Response{
		Status:        status,
		StatusCode:    r.Status,
		Proto:         VersionString(major, minor),
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
	}, nil
}
