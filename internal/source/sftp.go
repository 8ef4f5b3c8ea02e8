package source

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

type SFTPFactory struct{}

func (f *SFTPFactory) Accept(u *url.URL) bool { return u.Scheme == "sftp" }

func (f *SFTPFactory) Create(u *url.URL, opts Options) (Source, error) {
	return NewSFTP(u, opts)
}

func (f *SFTPFactory) Name() string { return "sftp" }

// SFTP serves templates over an SSH file transfer session. The sftp client
// is safe for concurrent use, so one session serves all requests.
type SFTP struct {
	ssh    *ssh.Client
	client *sftp.Client
	base   string
	creds  *Credentials
	log    *zap.Logger
}

// knownHosts holds fingerprints confirmed during this process, by host.
type knownHosts struct {
	mu           sync.Mutex
	fingerprints map[string]string
}

var trustedHosts = &knownHosts{fingerprints: make(map[string]string)}

// verifier asks on out and reads the answer from in whenever a host presents
// a key that has not been confirmed yet. Answers are read through one buffered
// reader shared by every connection.
func (k *knownHosts) verifier(in *bufio.Reader, out io.Writer) ssh.HostKeyCallback {
	return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
		fingerprint := ssh.FingerprintSHA256(key)

		k.mu.Lock()
		defer k.mu.Unlock()
		if k.fingerprints[hostname] == fingerprint {
			return nil
		}

		fmt.Fprintf(out, "\nThe authenticity of host '%s' can't be established.\n", hostname)
		fmt.Fprintf(out, "%s key fingerprint is %s\n", key.Type(), fingerprint)
		fmt.Fprint(out, "Are you sure you want to continue connecting (yes/no)? ")

		answer, err := in.ReadString('\n')
		if err != nil && answer == "" {
			return errors.Wrap(err, "failed to read host key confirmation")
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "yes", "y":
			k.fingerprints[hostname] = fingerprint
			return nil
		}
		return errors.Errorf("host key for %s rejected", hostname)
	}
}

var hostKeyCallback = trustedHosts.verifier(bufio.NewReader(os.Stdin), os.Stderr)

// authMethods accepts either a plain password or a base64 encoded private key.
func authMethods(secret []byte) []ssh.AuthMethod {
	if keyBytes, err := base64.StdEncoding.DecodeString(string(secret)); err == nil {
		if signer, err := ssh.ParsePrivateKey(keyBytes); err == nil {
			return []ssh.AuthMethod{ssh.PublicKeys(signer)}
		}
	}
	return []ssh.AuthMethod{ssh.Password(string(secret))}
}

func NewSFTP(u *url.URL, opts Options) (*SFTP, error) {
	if u.User == nil || u.User.Username() == "" {
		return nil, errors.New("sftp URL must name a user")
	}

	secret := opts.Password
	if p, set := u.User.Password(); set {
		secret = []byte(p)
	}
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "22")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	config := &ssh.ClientConfig{
		User:            u.User.Username(),
		Auth:            authMethods(secretCopy),
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		secureWipe(secretCopy)
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		secureWipe(secretCopy)
		return nil, errors.Wrap(err, "failed to start sftp session")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &SFTP{
		ssh:    sshClient,
		client: client,
		base:   path.Clean("/" + u.Path),
		creds:  &Credentials{username: u.User.Username(), password: secretCopy},
		log:    log,
	}, nil
}

func (s *SFTP) List(ctx context.Context, remotePath string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := path.Join(s.base, remotePath)
	entries, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, sftpError(err, dir)
	}

	listing := NewListing()
	for _, e := range entries {
		switch {
		case e.Mode().IsRegular():
			listing.AddFile(e.Name())
		case e.IsDir():
			listing.AddDir(e.Name())
		default:
			s.log.Debug("skipping entry", zap.String("path", path.Join(dir, e.Name())), zap.Stringer("mode", e.Mode()))
		}
	}
	return listing, nil
}

func (s *SFTP) Open(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file := path.Join(s.base, remotePath)
	f, err := s.client.Open(file)
	if err != nil {
		return nil, sftpError(err, file)
	}
	return f, nil
}

func (s *SFTP) Close() error {
	if s.creds != nil {
		s.creds.Clear()
	}
	if err := s.client.Close(); err != nil {
		s.ssh.Close()
		return err
	}
	return s.ssh.Close()
}

func sftpError(err error, target string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(ErrNotFound, "sftp %s", target)
	}
	return errors.Wrapf(err, "sftp %s", target)
}
