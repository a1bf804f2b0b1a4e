package sentiment

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactOpenerReadsLocalPath(t *testing.T) {
	path := filepath.Join("testdata", "tfidf_vectorizer.v1.json")
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}

	rc, err := (&ArtifactOpener{}).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("local artifact content mismatch")
	}
}

func TestArtifactOpenerMissingLocalFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := (&ArtifactOpener{}).Open(context.Background(), missing); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}

	clf := filepath.Join("testdata", "news_sentiment.v1.json")
	_, err := LoadModels(context.Background(), &ArtifactOpener{}, missing, clf)
	if !errors.Is(err, ErrModelLoad) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrModelLoad wrapping fs.ErrNotExist, got %v", err)
	}
}

// 本地模拟 S3 兼容存储（路径风格：/bucket/key）
func newObjectServer(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setFakeAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestLoadModelsFromS3CompatibleStore(t *testing.T) {
	setFakeAWSEnv(t)

	vec, err := os.ReadFile(filepath.Join("testdata", "tfidf_vectorizer.v1.json"))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	clf, err := os.ReadFile(filepath.Join("testdata", "news_sentiment.v1.json"))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	srv := newObjectServer(t, map[string]string{
		"/models/tfidf_vectorizer.v1.json": string(vec),
		"/models/news_sentiment.v1.json":   string(clf),
	})

	op := &ArtifactOpener{Region: "us-east-1", UsePathStyle: true, Endpoint: srv.URL}
	m, err := LoadModels(context.Background(), op, "s3://models/tfidf_vectorizer.v1.json", "s3://models/news_sentiment.v1.json")
	if err != nil {
		t.Fatalf("LoadModels from s3: %v", err)
	}
	if label := m.Predict("stocks rally"); !IsLabel(label) {
		t.Fatalf("Predict returned unknown label %q", label)
	}

	_, err = LoadModels(context.Background(), op, "s3://models/missing.json", "s3://models/news_sentiment.v1.json")
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad for missing object, got %v", err)
	}
}
