package transport

import (
	"context"
	"io"

	"github.com/damianoneill/chanrpc"
	"github.com/damianoneill/chanrpc/framing"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Dialer supplies an SSH client and knows how to dispose of it. It
// mirrors netconf/client.SSHClientFactory's Dial/Close pair, which exists
// so a pre-established *ssh.Client can be reused without the Channel
// closing a connection it doesn't own.
type Dialer interface {
	Dial(ctx context.Context) (*ssh.Client, error)
	Close(*ssh.Client) error
}

// NewDialer returns a Dialer that dials target fresh on each Connect and
// closes the client it created on Close.
func NewDialer(target string, cfg *ssh.ClientConfig) Dialer {
	return &freshDialer{target: target, cfg: cfg}
}

type freshDialer struct {
	target string
	cfg    *ssh.ClientConfig
}

func (d *freshDialer) Dial(_ context.Context) (*ssh.Client, error) {
	return ssh.Dial("tcp", d.target, d.cfg)
}

func (d *freshDialer) Close(c *ssh.Client) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

// NewClientDialer returns a Dialer wrapping an already-connected
// *ssh.Client, which Close leaves open (the caller owns its lifetime).
func NewClientDialer(client *ssh.Client) Dialer {
	return &preDialed{client: client}
}

type preDialed struct {
	client *ssh.Client
}

func (d *preDialed) Dial(_ context.Context) (*ssh.Client, error) { return d.client, nil }
func (d *preDialed) Close(*ssh.Client) error                     { return nil }

// SSH is a Channel carried over an SSH session's requested subsystem
// (analogous to NETCONF's "netconf" subsystem), framed with the framing
// package instead of XML/RFC6242. Generalized from
// netconf/client/transport.go's tImpl and rpcsessionfactory.go's dialer
// plumbing.
type SSH struct {
	dialer    Dialer
	subsystem string
	pers      bool

	client  *ssh.Client
	session *ssh.Session
	stream  *Stream
	events  chanrpc.ChannelEvents
}

// NewSSH returns a Channel that, on Connect, dials via dialer and requests
// subsystem on a new SSH session.
func NewSSH(dialer Dialer, subsystem string, persistent bool) *SSH {
	return &SSH{dialer: dialer, subsystem: subsystem, pers: persistent}
}

// Connect implements chanrpc.Channel.
func (c *SSH) Connect(ctx context.Context) (err error) {
	c.client, err = c.dialer.Dial(ctx)
	if err != nil {
		return errors.Wrap(err, "dial ssh")
	}
	defer func() {
		if err != nil {
			_ = c.dialer.Close(c.client)
		}
	}()

	c.session, err = c.client.NewSession()
	if err != nil {
		return errors.Wrap(err, "new ssh session")
	}

	stdout, err := c.session.StdoutPipe()
	if err != nil {
		_ = c.session.Close()
		return errors.Wrap(err, "stdout pipe")
	}
	stdin, err := c.session.StdinPipe()
	if err != nil {
		_ = c.session.Close()
		return errors.Wrap(err, "stdin pipe")
	}
	if err = c.session.RequestSubsystem(c.subsystem); err != nil {
		_ = c.session.Close()
		return errors.Wrapf(err, "request subsystem %s", c.subsystem)
	}

	c.stream = NewStream(&sshPipe{r: stdout, wc: stdin}, "ssh", c.pers, framing.DefaultMaxFrameSize)
	c.stream.SetEvents(c.events)
	return c.stream.Connect(ctx)
}

// Close implements chanrpc.Channel, closing resources in the same order
// as netconf/client/transport.go's tImpl.Close: stdin pipe / stream, then
// SSH session, then SSH client.
func (c *SSH) Close() (err error) {
	if c.stream != nil {
		err = c.stream.Close()
	}
	if c.session != nil {
		sessionErr := c.session.Close()
		if err == nil {
			err = sessionErr
		}
	}
	closeErr := c.dialer.Close(c.client)
	if err == nil {
		err = closeErr
	}
	return err
}

// SendFrame implements chanrpc.Channel.
func (c *SSH) SendFrame(frame []byte) bool {
	if c.stream == nil {
		return false
	}
	return c.stream.SendFrame(frame)
}

// Type implements chanrpc.Channel.
func (c *SSH) Type() string { return "ssh" }

// IsPersistent implements chanrpc.Channel.
func (c *SSH) IsPersistent() bool { return c.pers }

// SetEvents implements chanrpc.Channel.
func (c *SSH) SetEvents(events chanrpc.ChannelEvents) {
	c.events = events
	if c.stream != nil {
		c.stream.SetEvents(events)
	}
}

// sshPipe combines an SSH session's separate stdout reader and stdin
// write-closer into a single io.ReadWriteCloser, the same join
// netconf/client/transport.go performs for its Transport interface.
type sshPipe struct {
	r  io.Reader
	wc io.WriteCloser
}

func (p *sshPipe) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *sshPipe) Write(b []byte) (int, error) { return p.wc.Write(b) }
func (p *sshPipe) Close() error                { return p.wc.Close() }
