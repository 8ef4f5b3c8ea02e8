package source

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BuilderIO/generate-repo-from-template/internal/retry"
)

// BrowserUserAgent is sent with every request; the tree pages are not served
// to unknown clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type GitHubFactory struct{}

func (f *GitHubFactory) Accept(u *url.URL) bool {
	return u.Scheme == "https" || u.Scheme == "http"
}

func (f *GitHubFactory) Create(u *url.URL, opts Options) (Source, error) {
	return NewGitHub(u, opts)
}

func (f *GitHubFactory) Name() string {
	return "github"
}

// GitHub lists a repository folder by scraping its tree pages and reads files
// from the raw content host. The tree URL has the form
// https://github.com/<owner>/<repo>/tree/<ref>/<root>.
type GitHub struct {
	treeURL    string
	rawURL     string
	dirPrefix  string
	filePrefix string
	client     *http.Client
	retry      retry.Config
	log        *zap.Logger
}

func NewGitHub(u *url.URL, opts Options) (*GitHub, error) {
	dirPrefix := strings.TrimSuffix(u.EscapedPath(), "/")
	if !strings.Contains(dirPrefix, "/tree/") {
		return nil, errors.Errorf("tree URL %s has no /tree/ segment", u)
	}
	if opts.RawURL == "" {
		return nil, errors.New("raw content URL cannot be empty")
	}

	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	treeURL := *u
	treeURL.RawQuery = ""
	treeURL.Fragment = ""

	return &GitHub{
		treeURL:    strings.TrimSuffix(treeURL.String(), "/"),
		rawURL:     strings.TrimSuffix(opts.RawURL, "/"),
		dirPrefix:  dirPrefix,
		filePrefix: strings.Replace(dirPrefix, "/tree/", "/blob/", 1),
		client:     client,
		retry:      opts.Retry,
		log:        log,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func (g *GitHub) List(ctx context.Context, remotePath string) (*Listing, error) {
	pageURL := joinURL(g.treeURL, remotePath)
	g.log.Debug("listing", zap.String("path", remotePath), zap.String("url", pageURL))

	body, err := g.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	markup, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading listing for %s", remotePath)
	}

	return ParseListing(string(markup),
		joinURL(g.filePrefix, remotePath),
		joinURL(g.dirPrefix, remotePath)), nil
}

func (g *GitHub) Open(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	return g.get(ctx, joinURL(g.rawURL, remotePath))
}

func (g *GitHub) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// get performs a GET with retries and returns the decoded body of a 2xx
// response. A 404 is reported as ErrNotFound.
func (g *GitHub) get(ctx context.Context, target string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := retry.Do(ctx, g.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return errors.Wrapf(err, "error creating request for %s", target)
		}
		req.Header.Set("User-Agent", BrowserUserAgent)
		req.Header.Set("Accept-Encoding", acceptEncoding)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.Retryable(errors.Wrapf(err, "error requesting %s", target))
		}

		if err := checkStatus(resp, target); err != nil {
			resp.Body.Close()
			return err
		}

		body, err = decodeBody(resp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func checkStatus(resp *http.Response, target string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "GET %s", target)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Retryable(errors.Errorf("server returned %s for %s", resp.Status, target))
	default:
		return errors.Errorf("server returned %s for %s", resp.Status, target)
	}
}

func joinURL(base, remotePath string) string {
	if remotePath == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(remotePath, "/")
}
