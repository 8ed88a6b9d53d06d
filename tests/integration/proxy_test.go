//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/cacher/internal/testutil"
	"github.com/Sternrassler/cacher/pkg/cache"
	"github.com/Sternrassler/cacher/pkg/proxy"
)

// setupRedis starts a Redis container and returns its connection URL.
func setupRedis(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func newStack(t *testing.T, opts proxy.Options) (*httptest.Server, *redis.Client, *testutil.MockOrigin) {
	t.Helper()

	origin := testutil.NewMockOrigin()
	t.Cleanup(origin.Close)

	client, err := cache.NewRedisClient(cache.RedisOptions{URL: setupRedis(t), PoolSize: 50})
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	opts.Backend = origin.URL()
	p, err := proxy.New(cache.NewStore(client, ""), opts)
	if err != nil {
		t.Fatalf("Failed to create proxy: %v", err)
	}

	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return srv, client, origin
}

func get(t *testing.T, url string, header map[string]string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// TestMissHitExpire runs the basic cache cycle against a real Redis.
func TestMissHitExpire(t *testing.T) {
	srv, client, origin := newStack(t, proxy.Options{TTL: time.Second})
	origin.SetResponse("/a", testutil.TextResponse("payload"))

	resp, body := get(t, srv.URL+"/a", nil)
	if got := resp.Header.Get(proxy.StatusHeader); got != "MISS" {
		t.Fatalf("first request status = %q, want MISS", got)
	}
	if body != "payload" {
		t.Errorf("body = %q", body)
	}

	key := "GET_" + origin.URL() + "/a"
	ttl, err := client.TTL(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("TTL = %v, want (0, 1s]", ttl)
	}

	resp, body = get(t, srv.URL+"/a", nil)
	if got := resp.Header.Get(proxy.StatusHeader); got != "HIT" {
		t.Errorf("second request status = %q, want HIT", got)
	}
	if body != "payload" {
		t.Errorf("cached body = %q", body)
	}

	time.Sleep(1500 * time.Millisecond)

	resp, _ = get(t, srv.URL+"/a", nil)
	if got := resp.Header.Get(proxy.StatusHeader); got != "MISS" {
		t.Errorf("after expiry status = %q, want MISS", got)
	}
	if got := origin.PathCount("/a"); got != 2 {
		t.Errorf("origin hits = %d, want 2", got)
	}
}

// TestVaryHandling checks that the registration written on a miss drives
// subsequent lookups.
func TestVaryHandling(t *testing.T) {
	srv, client, origin := newStack(t, proxy.Options{Vary: true})
	origin.SetHandler("/v", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Accept-Encoding")
		_, _ = io.WriteString(w, "enc="+r.Header.Get("Accept-Encoding"))
	})

	get(t, srv.URL+"/v", map[string]string{"Accept-Encoding": "identity"})

	registered, err := client.Get(context.Background(), "/v").Result()
	if err != nil {
		t.Fatalf("vary registration missing: %v", err)
	}
	if registered != "Accept-Encoding" {
		t.Errorf("registration = %q", registered)
	}

	resp, body := get(t, srv.URL+"/v", map[string]string{"Accept-Encoding": "identity"})
	if got := resp.Header.Get(proxy.StatusHeader); got != "HIT" {
		t.Errorf("status = %q, want HIT", got)
	}
	if body != "enc=identity" {
		t.Errorf("body = %q", body)
	}
}

// TestConcurrentRequests exercises the connection pool under load.
func TestConcurrentRequests(t *testing.T) {
	srv, _, origin := newStack(t, proxy.Options{TTL: time.Minute})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Get(fmt.Sprintf("%s/items/%d", srv.URL, i%4))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("status %d", resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if got := origin.RequestCount(); got < 4 || got > 40 {
		t.Errorf("origin requests = %d, want between 4 and 40", got)
	}
}
