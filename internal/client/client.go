package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
)

// DefaultTimeout bounds each request/reply round trip.
const DefaultTimeout = 5 * time.Second

// ErrInvalidToken is returned for keys or values that cannot travel as a
// single protocol token.
var ErrInvalidToken = errors.New("client: key and value must be non-empty and contain no whitespace")

// Reply is one server response.
type Reply struct {
	Status domain.Status
	Value  string
}

// String returns the wire form without the newline.
func (r Reply) String() string {
	if r.Value == "" {
		return r.Status.String()
	}
	return r.Status.String() + " " + r.Value
}

// ParseReply parses a response line.
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	code, value, _ := strings.Cut(line, " ")
	status, err := domain.ParseStatus(code)
	if err != nil {
		return Reply{}, fmt.Errorf("client: malformed reply %q: %w", line, err)
	}
	return Reply{Status: status, Value: value}, nil
}

// Client is a connection to a minidb server. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline. 0 disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	c := &Client{
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one raw command line and reads its reply.
func (c *Client) Do(line string) (Reply, error) {
	if strings.ContainsAny(line, "\r\n") {
		return Reply{}, errors.New("client: command must be a single line")
	}

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return Reply{}, err
		}
	}
	if _, err := c.bw.WriteString(line + "\n"); err != nil {
		return Reply{}, fmt.Errorf("client: send: %w", err)
	}
	if err := c.bw.Flush(); err != nil {
		return Reply{}, fmt.Errorf("client: send: %w", err)
	}

	resp, err := c.br.ReadString('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("client: receive: %w", err)
	}
	return ParseReply(resp)
}

// Post stores value under key.
func (c *Client) Post(key, value string) error {
	if !domain.ValidToken(key) || !domain.ValidToken(value) {
		return ErrInvalidToken
	}
	r, err := c.Do("POST " + key + " " + value)
	if err != nil {
		return err
	}
	return statusErr(r)
}

// Get returns the value stored under key, or domain.ErrKeyNotFound.
func (c *Client) Get(key string) (string, error) {
	if !domain.ValidToken(key) {
		return "", ErrInvalidToken
	}
	r, err := c.Do("GET " + key)
	if err != nil {
		return "", err
	}
	if err := statusErr(r); err != nil {
		return "", err
	}
	return r.Value, nil
}

// Delete removes key, or returns domain.ErrKeyNotFound.
func (c *Client) Delete(key string) error {
	if !domain.ValidToken(key) {
		return ErrInvalidToken
	}
	r, err := c.Do("DELETE " + key)
	if err != nil {
		return err
	}
	return statusErr(r)
}

func statusErr(r Reply) error {
	switch r.Status {
	case domain.StatusOK:
		return nil
	case domain.StatusNotFound:
		return domain.ErrKeyNotFound
	default:
		return domain.ErrUnknownCommand
	}
}
