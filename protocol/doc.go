// Package protocol holds the wire codecs layered above a transport session:
// RFC 6455 client framing and handshake, and the HTTP/1.1 request and
// response formats used by the HTTP client.
package protocol
