// Package quicsink streams (CorpusDelta, Stats) records to a connected
// remote observer over QUIC, standing in for the out-of-scope TUI (§4.8):
// the core only ever needs to hand finished events to something else, never
// render them itself.
//
// Grounded on the teacher's internal/runtime/netstack TLS 1.3 conventions
// (GenerateSelfSignedTLS, TLSServer/TLSDial's MinVersion enforcement) and on
// quic-go being a direct teacher dependency previously exercised only by
// its now-trimmed HTTP/3 server wrapper.
package quicsink

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	quic "github.com/quic-go/quic-go"

	"github.com/orizon-lang/orizon-fuzz/internal/runtime/netstack"
)

// protocol is the ALPN token negotiated by this sink's QUIC streams.
const protocol = "orizon-fuzz-sink/1"

// Record is the length-prefixed JSON payload written per delta, with the
// same fields as sink.File's NDJSON lines: indices and the admitted case are
// rendered as strings, since a remote observer only ever needs to display
// the event stream, never reconstruct a typed T.
type Record struct {
	Path    string   `json:"path"`
	Stats   string   `json:"stats"`
	Added   bool     `json:"added"`
	Index   string   `json:"index,omitempty"`
	CaseHex string   `json:"case_hex,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

func tlsConfig(cfg *tls.Config) *tls.Config {
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS13}
	} else if cfg.MinVersion == 0 || cfg.MinVersion < tls.VersionTLS13 {
		cfg = cfg.Clone()
		cfg.MinVersion = tls.VersionTLS13
	}

	if len(cfg.NextProtos) == 0 {
		cfg = cfg.Clone()
		cfg.NextProtos = []string{protocol}
	}

	return cfg
}

// Server accepts a single remote observer connection at a time and streams
// every Record written via Send to it.
type Server struct {
	ln     *quic.Listener
	mu     sync.Mutex
	stream quic.Stream
}

// Listen binds a QUIC listener at addr. A nil tlsCfg generates a fresh
// self-signed certificate for localhost/127.0.0.1, convenient for local
// observer tooling during development.
func Listen(addr string, tlsCfg *tls.Config) (*Server, error) {
	if tlsCfg == nil {
		generated, err := netstack.GenerateSelfSignedTLS([]string{"localhost", "127.0.0.1"}, 0)
		if err != nil {
			return nil, fmt.Errorf("quicsink: generate self-signed cert: %w", err)
		}

		generated.NextProtos = []string{protocol}
		tlsCfg = generated
	}

	ln, err := quic.ListenAddr(addr, tlsConfig(tlsCfg), &quic.Config{})
	if err != nil {
		return nil, fmt.Errorf("quicsink: listen: %w", err)
	}

	return &Server{ln: ln}, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// AcceptObserver blocks until one remote observer connects and opens its
// stream, then remembers it as the active sink destination.
func (s *Server) AcceptObserver(ctx context.Context) error {
	conn, err := s.ln.Accept(ctx)
	if err != nil {
		return fmt.Errorf("quicsink: accept: %w", err)
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return fmt.Errorf("quicsink: accept stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	return nil
}

// Send writes rec as a length-prefixed JSON frame to the active observer
// stream. A no-op (returns nil) if no observer is connected yet, so a
// driver run need not block waiting for a remote watcher.
func (s *Server) Send(rec Record) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return nil
	}

	return writeFrame(stream, rec)
}

// Close shuts down the listener and any active observer stream.
func (s *Server) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}

	return s.ln.Close()
}

// Client connects to a Server and decodes the Record stream it emits.
type Client struct {
	conn   quic.Connection
	stream quic.Stream
}

// Dial connects to a quicsink Server at addr.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*Client, error) {
	if tlsCfg == nil {
		tlsCfg = &tls.Config{InsecureSkipVerify: true}
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConfig(tlsCfg), &quic.Config{})
	if err != nil {
		return nil, fmt.Errorf("quicsink: dial: %w", err)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("quicsink: open stream: %w", err)
	}

	return &Client{conn: conn, stream: stream}, nil
}

// Next blocks for the next Record frame from the server.
func (c *Client) Next() (Record, error) {
	return readFrame(c.stream)
}

// Close closes the client's stream and connection.
func (c *Client) Close() error {
	_ = c.stream.Close()

	return c.conn.CloseWithError(0, "")
}

func writeFrame(w io.Writer, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	_, err = w.Write(body)

	return err
}

func readFrame(r io.Reader) (Record, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Record{}, err
	}

	n := binary.BigEndian.Uint32(header[:])
	body := make([]byte, n)

	if _, err := io.ReadFull(r, body); err != nil {
		return Record{}, err
	}

	var rec Record

	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}
