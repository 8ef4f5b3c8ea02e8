package source

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type FTPFactory struct{}

func (f *FTPFactory) Accept(u *url.URL) bool {
	return u.Scheme == "ftp"
}

func (f *FTPFactory) Create(u *url.URL, opts Options) (Source, error) {
	return NewFTP(u, opts)
}

func (f *FTPFactory) Name() string {
	return "ftp"
}

// FTP serves templates from an FTP server. A ServerConn handles one command
// at a time, so connections are pooled and held by a caller until its
// listing or file read is finished. At most ftpPoolSize connections are open
// at once; further callers wait for one to be released.
type FTP struct {
	addr    string
	base    string
	timeout time.Duration
	creds   *Credentials
	conns   chan *ftp.ServerConn
	active  chan struct{}
	log     *zap.Logger
}

const ftpPoolSize = 8

func NewFTP(u *url.URL, opts Options) (*FTP, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}

	username := "anonymous"
	password := []byte("anonymous")
	if u.User != nil {
		username = u.User.Username()
		if p, set := u.User.Password(); set {
			password = []byte(p)
		} else if opts.Password != nil {
			password = opts.Password
		}
	}

	// Keep a private copy so the caller can wipe its own slice.
	passwordCopy := make([]byte, len(password))
	copy(passwordCopy, password)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	f := &FTP{
		addr:    addr,
		base:    path.Clean("/" + u.Path),
		timeout: opts.Timeout,
		creds:   &Credentials{username: username, password: passwordCopy},
		conns:   make(chan *ftp.ServerConn, ftpPoolSize),
		active:  make(chan struct{}, ftpPoolSize),
		log:     log,
	}

	// Fail early on bad credentials.
	c, err := f.acquire(context.Background())
	if err != nil {
		f.creds.Clear()
		return nil, err
	}
	f.release(c)
	return f, nil
}

func (f *FTP) dial(ctx context.Context) (*ftp.ServerConn, error) {
	options := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if f.timeout > 0 {
		options = append(options, ftp.DialWithTimeout(f.timeout))
	}
	c, err := ftp.Dial(f.addr, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", f.addr)
	}
	if err := c.Login(f.creds.username, string(f.creds.password)); err != nil {
		c.Quit() // Close connection on login failure
		return nil, errors.Wrapf(err, "failed to log in to %s", f.addr)
	}
	return c, nil
}

func (f *FTP) acquire(ctx context.Context) (*ftp.ServerConn, error) {
	select {
	case f.active <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case c := <-f.conns:
		return c, nil
	default:
	}
	c, err := f.dial(ctx)
	if err != nil {
		<-f.active
		return nil, err
	}
	return c, nil
}

// release returns a healthy connection to the pool.
func (f *FTP) release(c *ftp.ServerConn) {
	select {
	case f.conns <- c:
	default:
		_ = c.Quit()
	}
	<-f.active
}

// discard closes a connection whose state is unknown.
func (f *FTP) discard(c *ftp.ServerConn) {
	_ = c.Quit()
	<-f.active
}

func (f *FTP) List(ctx context.Context, remotePath string) (*Listing, error) {
	c, err := f.acquire(ctx)
	if err != nil {
		return nil, err
	}

	dir := path.Join(f.base, remotePath)
	entries, err := c.List(dir)
	if err != nil {
		// The connection state is unknown after a failed command.
		f.discard(c)
		return nil, ftpError(err, dir)
	}
	f.release(c)

	listing := NewListing()
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		switch e.Type {
		case ftp.EntryTypeFile:
			listing.AddFile(path.Base(e.Name))
		case ftp.EntryTypeFolder:
			listing.AddDir(path.Base(e.Name))
		default:
			f.log.Debug("skipping entry", zap.String("path", path.Join(dir, e.Name)), zap.Stringer("type", e.Type))
		}
	}
	return listing, nil
}

func (f *FTP) Open(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	c, err := f.acquire(ctx)
	if err != nil {
		return nil, err
	}

	file := path.Join(f.base, remotePath)
	r, err := c.Retr(file)
	if err != nil {
		f.discard(c)
		return nil, ftpError(err, file)
	}
	return &ftpReader{Response: r, conn: c, pool: f}, nil
}

func (f *FTP) Close() error {
	if f.creds != nil {
		f.creds.Clear()
	}
	close(f.conns)
	for c := range f.conns {
		_ = c.Quit()
	}
	return nil
}

// ftpReader returns its connection to the pool once the transfer is closed.
type ftpReader struct {
	*ftp.Response
	conn *ftp.ServerConn
	pool *FTP
}

func (r *ftpReader) Close() error {
	if err := r.Response.Close(); err != nil {
		r.pool.discard(r.conn)
		return err
	}
	r.pool.release(r.conn)
	return nil
}

func ftpError(err error, target string) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
		return errors.Wrapf(ErrNotFound, "ftp %s", target)
	}
	return errors.Wrapf(err, "ftp %s", target)
}
