package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/api/option"
)

const gcsPort = "4443/tcp"

var (
	gcsContainer *GCSContainer
	gcsOnce      sync.Once
	gcsStartErr  error
)

// GCSContainer wraps a fake-gcs-server container holding the statement bucket.
type GCSContainer struct {
	container testcontainers.Container
	client    *storage.Client
	bucket    string
	host      string
	ctx       context.Context
	cancel    context.CancelFunc
}

// Host returns the emulator's host:port, suitable for GCSConfig.Hostname.
func (g *GCSContainer) Host() string {
	return g.host
}

// Bucket returns the pre-created bucket name.
func (g *GCSContainer) Bucket() string {
	return g.bucket
}

// ReadObject fetches an object written through a signed URL.
func (g *GCSContainer) ReadObject(ctx context.Context, key string) ([]byte, string, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	return data, r.Attrs.ContentType, nil
}

// CollectLogs saves the emulator's stdout/stderr to dir/.
func (g *GCSContainer) CollectLogs(dir string) {
	if g == nil || g.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	os.MkdirAll(dir, 0755)

	reader, err := g.container.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(dir, "fake-gcs-server.log"), logs, 0644)
}

// Cleanup closes the client and terminates the container.
// Uses a fresh context for teardown in case the main context expired.
func (g *GCSContainer) Cleanup() {
	if g == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	if g.client != nil {
		g.client.Close()
	}
	if g.container != nil {
		g.container.Terminate(cleanupCtx)
	}
	if g.cancel != nil {
		g.cancel()
	}
}

// startGCSEmulator runs fake-gcs-server over plain HTTP and creates the bucket.
func startGCSEmulator() (*GCSContainer, error) {
	cfg := LoadTestConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	ctr, err := testcontainers.Run(ctx, cfg.GCS.Image,
		testcontainers.WithExposedPorts(gcsPort),
		testcontainers.WithCmd("-scheme", "http", "-port", "4443", "-backend", "memory"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/storage/v1/b").WithPort(gcsPort).WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start fake-gcs-server: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get emulator host: %w", err)
	}
	mappedPort, err := ctr.MappedPort(ctx, gcsPort)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get emulator mapped port: %w", err)
	}
	hostPort := fmt.Sprintf("%s:%s", host, mappedPort.Port())

	client, err := storage.NewClient(ctx,
		option.WithEndpoint("http://"+hostPort+"/storage/v1/"),
		option.WithoutAuthentication(),
		storage.WithJSONReads(),
	)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("create emulator client: %w", err)
	}

	if err := client.Bucket(cfg.GCS.Bucket).Create(ctx, "loan-portal-test", nil); err != nil {
		client.Close()
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("create bucket %s: %w", cfg.GCS.Bucket, err)
	}

	return &GCSContainer{
		container: ctr,
		client:    client,
		bucket:    cfg.GCS.Bucket,
		host:      hostPort,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// StartGCS starts the storage emulator (one per test process).
func StartGCS(t *testing.T) *GCSContainer {
	t.Helper()
	RequireIntegration(t)

	gcsOnce.Do(func() {
		gcsContainer, gcsStartErr = startGCSEmulator()
	})
	if gcsStartErr != nil {
		t.Fatalf("Failed to start storage emulator: %v", gcsStartErr)
	}
	return gcsContainer
}

// StopGCS tears down the shared emulator; call it from TestMain.
func StopGCS() {
	if gcsContainer != nil {
		gcsContainer.CollectLogs(GetResultsDir())
		gcsContainer.Cleanup()
	}
}
