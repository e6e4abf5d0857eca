package pageload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/dom"
)

// DefaultMaxBytes caps how much of a page is read.
const DefaultMaxBytes = 8 << 20

// Page is a loaded control page.
type Page struct {
	Document *dom.Document

	// Source is the source the page was loaded from.
	Source string

	// URL is the address the page was served from. Empty for file and
	// S3 sources.
	URL string
}

// ObjectGetter is the part of *s3.Client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader loads pages from files, HTTP and S3.
type Loader struct {
	client   *http.Client
	s3       ObjectGetter
	s3cfg    config.S3Config
	logger   *slog.Logger
	maxBytes int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithS3Client sets the client used for s3:// sources. Without it a client
// is built from the S3 config on first use.
func WithS3Client(c ObjectGetter) Option {
	return func(l *Loader) {
		l.s3 = c
	}
}

// WithS3Config sets the region, endpoint and credentials for s3:// sources.
func WithS3Config(cfg config.S3Config) Option {
	return func(l *Loader) {
		l.s3cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMaxBytes caps the page size.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		l.maxBytes = n
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "pageload")
	return l
}

// Load reads and parses the page at source.
func (l *Loader) Load(ctx context.Context, source string) (*Page, error) {
	scheme := ""
	if i := strings.Index(source, "://"); i > 0 {
		scheme = strings.ToLower(source[:i])
	}

	l.logger.Debug("loading page", "source", source)
	switch scheme {
	case "":
		return l.loadFile(source, source)
	case "file":
		u, err := url.Parse(source)
		if err != nil {
			return nil, errors.New("S023").WithDetail(source).Wrap(err)
		}
		return l.loadFile(source, u.Path)
	case "http", "https":
		return l.loadHTTP(ctx, source)
	case "s3":
		return l.loadS3(ctx, source)
	}
	return nil, errors.New("S023").
		WithDetail("Unknown scheme " + scheme + " in " + source)
}

func (l *Loader) loadFile(source, path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			abs, _ := filepath.Abs(path)
			return nil, errors.New("S020").WithDetail("No file at " + abs)
		}
		return nil, errors.New("S021").Wrap(err)
	}
	defer f.Close()
	return l.parse(source, "", f)
}

func (l *Loader) loadHTTP(ctx context.Context, source string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.New("S023").WithDetail(source).Wrap(err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.New("S021").WithDetail("GET " + source).Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New("S020").WithDetail("GET " + source + " returned " + resp.Status)
	case resp.StatusCode >= 300:
		return nil, errors.New("S021").WithDetail("GET " + source + " returned " + resp.Status)
	}

	return l.parse(source, resp.Request.URL.String(), resp.Body)
}

func (l *Loader) loadS3(ctx context.Context, source string) (*Page, error) {
	bucket, key, err := ParseS3(source)
	if err != nil {
		return nil, err
	}

	client := l.s3
	if client == nil {
		client = NewS3Client(l.s3cfg)
		l.s3 = client
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("S024").WithDetail("s3://" + bucket + "/" + key).Wrap(err)
	}
	defer out.Body.Close()
	return l.parse(source, "", out.Body)
}

func (l *Loader) parse(source, pageURL string, r io.Reader) (*Page, error) {
	limited := io.LimitReader(r, l.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("S021").WithDetail(source).Wrap(err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, errors.New("S022").
			WithDetail(fmt.Sprintf("%s is larger than %d bytes", source, l.maxBytes))
	}

	doc, err := dom.ParseString(string(data))
	if err != nil {
		return nil, errors.New("S022").WithDetail(source).Wrap(err)
	}

	l.logger.Debug("page loaded", "source", source, "bytes", len(data), "url", pageURL)
	return &Page{Document: doc, Source: source, URL: pageURL}, nil
}

// ParseS3 splits an s3://bucket/key source.
func ParseS3(source string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(source, "s3://")
	if !ok {
		return "", "", errors.New("S023").WithDetail(source + " is not an s3:// URL")
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("S023").
			WithDetail(source + " must name a bucket and a key").
			WithExample("surface run s3://panels/mixer.html")
	}
	return bucket, key, nil
}

// NewS3Client builds an S3 client from cfg. Without an access key the
// client makes anonymous requests.
func NewS3Client(cfg config.S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = config.DefaultS3Region
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			Source:          "surface config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil }))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}
