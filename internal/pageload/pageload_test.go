package pageload

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
)

const panel = `<html><body><input id="vol" type="range" data-range-channel="volume"></body></html>`

func quietLoader(opts ...Option) *Loader {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func errorCode(err error) string {
	var se *errors.SurfaceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

type fakeS3 struct {
	objects map[string]string
	calls   []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	name := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.calls = append(f.calls, name)
	body, ok := f.objects[name]
	if !ok {
		return nil, stderrors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.html")
	if err := os.WriteFile(path, []byte(panel), 0644); err != nil {
		t.Fatal(err)
	}

	for _, source := range []string{path, "file://" + path} {
		page, err := quietLoader().Load(context.Background(), source)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", source, err)
		}
		if page.Document.ByID("vol") == nil {
			t.Errorf("Load(%q): #vol missing", source)
		}
		if page.URL != "" {
			t.Errorf("Load(%q).URL = %q, want empty", source, page.URL)
		}
		if page.Source != source {
			t.Errorf("Source = %q, want %q", page.Source, source)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := quietLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.html"))
	if errorCode(err) != "S020" {
		t.Errorf("error = %v, want S020", err)
	}
}

func TestLoadHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/panel", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, panel)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/panel?room=1", http.StatusFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := quietLoader(WithHTTPClient(srv.Client()))

	page, err := l.Load(context.Background(), srv.URL+"/panel")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if page.URL != srv.URL+"/panel" {
		t.Errorf("URL = %q", page.URL)
	}
	if page.Document.ByID("vol") == nil {
		t.Error("#vol missing")
	}

	page, err = l.Load(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("Load(redirect) error: %v", err)
	}
	if page.URL != srv.URL+"/panel?room=1" {
		t.Errorf("URL after redirect = %q", page.URL)
	}

	tests := []struct {
		path string
		code string
	}{
		{"/missing", "S020"},
		{"/broken", "S021"},
	}
	for _, tt := range tests {
		_, err := l.Load(context.Background(), srv.URL+tt.path)
		if got := errorCode(err); got != tt.code {
			t.Errorf("Load(%s) code = %q, want %q (%v)", tt.path, got, tt.code, err)
		}
	}
}

func TestLoadTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.html")
	if err := os.WriteFile(path, []byte(panel), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := quietLoader(WithMaxBytes(10)).Load(context.Background(), path)
	if errorCode(err) != "S022" {
		t.Errorf("error = %v, want S022", err)
	}
}

func TestLoadS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"panels/mixer/main.html": panel}}
	l := quietLoader(WithS3Client(fake))

	page, err := l.Load(context.Background(), "s3://panels/mixer/main.html")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if page.Document.ByID("vol") == nil {
		t.Error("#vol missing")
	}
	if len(fake.calls) != 1 || fake.calls[0] != "panels/mixer/main.html" {
		t.Errorf("calls = %v", fake.calls)
	}

	_, err = l.Load(context.Background(), "s3://panels/other.html")
	if errorCode(err) != "S024" {
		t.Errorf("missing object error = %v, want S024", err)
	}
}

func TestUnsupportedSource(t *testing.T) {
	tests := []string{
		"ftp://example.com/panel.html",
		"s3://bucket-only",
		"s3:///key",
	}
	for _, source := range tests {
		_, err := quietLoader().Load(context.Background(), source)
		if errorCode(err) != "S023" {
			t.Errorf("Load(%q) error = %v, want S023", source, err)
		}
	}
}

func TestParseS3(t *testing.T) {
	bucket, key, err := ParseS3("s3://panels/a/b.html")
	if err != nil || bucket != "panels" || key != "a/b.html" {
		t.Errorf("ParseS3 = %q, %q, %v", bucket, key, err)
	}
	if _, _, err := ParseS3("https://panels/a"); err == nil {
		t.Error("ParseS3 should reject other schemes")
	}
}

func TestNewS3Client(t *testing.T) {
	anon := NewS3Client(config.S3Config{})
	if anon.Options().Region != config.DefaultS3Region {
		t.Errorf("Region = %q, want default", anon.Options().Region)
	}
	if _, ok := anon.Options().Credentials.(aws.AnonymousCredentials); !ok {
		t.Errorf("Credentials = %T, want anonymous", anon.Options().Credentials)
	}

	keyed := NewS3Client(config.S3Config{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
	})
	opts := keyed.Options()
	if opts.Region != "eu-west-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("Options = %+v", opts)
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if creds.AccessKeyID != "AKIA" || creds.SecretAccessKey != "secret" {
		t.Errorf("creds = %+v", creds)
	}
}
