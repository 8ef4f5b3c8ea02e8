package source

import (
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BuilderIO/generate-repo-from-template/internal/retry"
)

// Options are shared by every source implementation.
type Options struct {
	// RawURL is the base for raw file content. Only used by the GitHub source.
	RawURL   string
	Timeout  time.Duration
	Retry    retry.Config
	Password []byte
	Logger   *zap.Logger
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

var factories = []Factory{
	&GitHubFactory{},
	&FTPFactory{},
	&SFTPFactory{},
	// add more
}

func getFactory(u *url.URL) Factory {
	for _, factory := range factories {
		if factory.Accept(u) {
			return factory
		}
	}
	return nil
}

// Open parses rawURL and creates a Source with the first factory accepting it.
func Open(rawURL string, opts Options) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid source URL %q", rawURL)
	}
	factory := getFactory(u)
	if factory == nil {
		return nil, errors.Errorf("no source available for scheme: %s", u.Scheme)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	opts.Logger.Debug("opening template source", zap.String("source", factory.Name()), zap.String("url", u.Redacted()))
	return factory.Create(u, opts)
}

// NeedsPassword reports whether rawURL names a source that authenticates and
// carries no password of its own.
func NeedsPassword(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return false
	}
	if u.Scheme != "ftp" && u.Scheme != "sftp" {
		return false
	}
	_, set := u.User.Password()
	return !set
}
