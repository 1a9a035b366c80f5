package protocol

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestEncodeWireFormat(t *testing.T) {
	req := &Request{
		Method:  http.MethodPost,
		Path:    "/api/items",
		Params:  url.Values{"page": {"2"}},
		Version: "1.1",
		Header:  http.Header{"Content-Type": {"application/json"}, "Content-Length": {"999"}},
		Body:    []byte(`{"a":1}`),
	}
	want := "POST /api/items?page=2 HTTP/1.1\r\n" +
		"Host: 10.0.0.1:8080\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		`{"a":1}`
	assert.Equal(t, want, string(req.Encode("10.0.0.1", 8080)))
}

func TestRequestEncodeDefaults(t *testing.T) {
	got := string((&Request{}).Encode("example.com", 80))
	assert.Equal(t, "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n", got)
	got = string((&Request{}).Encode("example.com", 443))
	assert.Contains(t, got, "Host: example.com\r\n")
}

func TestResponseParserIncremental(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 11\r\n\r\nhello world"
	p := NewResponseParser()
	var resp *Response
	for i := 0; i < len(raw); i++ {
		r, err := p.Feed([]byte{raw[i]})
		require.NoError(t, err)
		if i < len(raw)-1 {
			require.Nil(t, r)
		}
		resp = r
	}
	require.NotNil(t, resp)
	assert.Equal(t, "1.1", resp.Version)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "hello world", string(resp.Body))
}

func TestResponseParserReadUntilClose(t *testing.T) {
	p := NewResponseParser()
	r, err := p.Feed([]byte("HTTP/1.0 200 OK\r\n\r\npartial"))
	require.NoError(t, err)
	assert.Nil(t, r)
	r, err = p.Feed([]byte(" body"))
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = p.Finish()
	require.NoError(t, err)
	assert.Equal(t, "partial body", string(r.Body))
}

func TestResponseParserErrors(t *testing.T) {
	_, err := NewResponseParser().Feed([]byte("SMTP ready\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformedStatus)

	_, err = NewResponseParser().Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: -4\r\n\r\n"))
	assert.ErrorIs(t, err, ErrBadLength)

	p := NewResponseParser()
	_, err = p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc"))
	require.NoError(t, err)
	_, err = p.Finish()
	assert.ErrorIs(t, err, ErrTruncatedBody)

	r, err := NewResponseParser().Feed([]byte("HTTP/1.1 204 No Content\r\n\r\n"))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Empty(t, r.Body)
}
