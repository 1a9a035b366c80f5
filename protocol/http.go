// File: protocol/http.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP/1.1 request rendering and incremental response parsing for the
// HTTP client.

package protocol

import (
	"bufio"
	"bytes"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/core/buffer"
)

var (
	ErrMalformedStatus = errors.New("malformed HTTP status line")
	ErrBadLength       = errors.New("invalid Content-Length")
	ErrTruncatedBody   = errors.New("connection closed before body completed")
)

// Request is an HTTP/1.1 request.
type Request struct {
	Method  string
	Path    string
	Params  url.Values
	Version string
	Header  http.Header
	Body    []byte
}

// Encode renders the request as
// METHOD path?query HTTP/version, Host, headers, Content-Length, blank line, body.
// The port is omitted from Host when it is 80 or 443.
func (r *Request) Encode(host string, port uint16) []byte {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	path := r.Path
	if path == "" {
		path = "/"
	}
	version := r.Version
	if version == "" {
		version = "1.1"
	}

	var b bytes.Buffer
	b.Grow(256 + len(r.Body))
	b.WriteString(method + " " + path)
	if len(r.Params) > 0 {
		b.WriteString("?" + r.Params.Encode())
	}
	b.WriteString(" HTTP/" + version + "\r\n")

	b.WriteString("Host: " + host)
	if port != 80 && port != 443 {
		b.WriteString(":" + strconv.Itoa(int(port)))
	}
	b.WriteString("\r\n")

	hdr := r.Header.Clone()
	hdr.Del("Host")
	hdr.Del("Content-Length")
	_ = hdr.Write(&b)
	if len(r.Body) > 0 {
		b.WriteString("Content-Length: " + strconv.Itoa(len(r.Body)) + "\r\n")
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// Response is a parsed HTTP response.
type Response struct {
	Version    string
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

// ResponseParser assembles one response from a byte stream.
type ResponseParser struct {
	in      *buffer.Buffer
	resp    *Response
	bodyLen int // -1: read until close
	done    bool
}

// NewResponseParser returns an empty parser.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{in: buffer.New(1024)}
}

// Feed appends p. It returns the response once it is complete, nil otherwise.
func (p *ResponseParser) Feed(b []byte) (*Response, error) {
	if p.done {
		return p.resp, nil
	}
	_, _ = p.in.Write(b)
	if p.resp == nil {
		end := bytes.Index(p.in.Bytes(), []byte("\r\n\r\n"))
		if end < 0 {
			if p.in.Len() > MaxHandshakeHeadersSize*4 {
				return nil, errors.New("response head too large")
			}
			return nil, nil
		}
		if err := p.parseHead(p.in.Bytes()[:end+4]); err != nil {
			return nil, err
		}
		p.in.Consume(end + 4)
	}
	if p.bodyLen >= 0 && p.in.Len() >= p.bodyLen {
		p.resp.Body = append([]byte(nil), p.in.Bytes()[:p.bodyLen]...)
		p.done = true
		return p.resp, nil
	}
	return nil, nil
}

// Finish reports the end of the stream. A response without Content-Length
// completes here; a short body is an error.
func (p *ResponseParser) Finish() (*Response, error) {
	switch {
	case p.done:
		return p.resp, nil
	case p.resp == nil:
		return nil, ErrTruncatedBody
	case p.bodyLen >= 0:
		return nil, errors.Wrapf(ErrTruncatedBody, "have %d of %d bytes", p.in.Len(), p.bodyLen)
	}
	p.resp.Body = append([]byte(nil), p.in.Bytes()...)
	p.done = true
	return p.resp, nil
}

func (p *ResponseParser) parseHead(head []byte) error {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(head)))
	line, err := tp.ReadLine()
	if err != nil {
		return errors.Wrap(err, "read status line")
	}
	version, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(version, "HTTP/") {
		return errors.Wrapf(ErrMalformedStatus, "%q", line)
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 999 {
		return errors.Wrapf(ErrMalformedStatus, "%q", line)
	}
	mime, err := tp.ReadMIMEHeader()
	if err != nil {
		return errors.Wrap(err, "read headers")
	}

	p.resp = &Response{
		Version:    strings.TrimPrefix(version, "HTTP/"),
		StatusCode: code,
		Reason:     reason,
		Header:     http.Header(mime),
	}
	p.bodyLen = -1
	switch {
	case code/100 == 1 || code == http.StatusNoContent || code == http.StatusNotModified:
		p.bodyLen = 0
	case p.resp.Header.Get("Content-Length") != "":
		n, err := strconv.Atoi(strings.TrimSpace(p.resp.Header.Get("Content-Length")))
		if err != nil || n < 0 {
			return errors.Wrapf(ErrBadLength, "%q", p.resp.Header.Get("Content-Length"))
		}
		p.bodyLen = n
	}
	return nil
}
