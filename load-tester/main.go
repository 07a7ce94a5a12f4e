package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	Endpoint    string
	Total       int
	Rate        int
	Concurrency int
	Scopes      int
	Users       int
}

func parseFlags() *Config {
	c := &Config{}
	flag.StringVar(&c.Endpoint, "endpoint", "", "Target URL of POST /events (required)")
	flag.IntVar(&c.Total, "total", 10000, "Total requests")
	flag.IntVar(&c.Rate, "rate", 2000, "Requests per second")
	flag.IntVar(&c.Concurrency, "concurrency", 0, "Worker count (0=auto)")
	flag.IntVar(&c.Scopes, "scopes", 50, "Distinct chat scopes")
	flag.IntVar(&c.Users, "users", 1000, "Distinct user ids")
	flag.Parse()

	if c.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "Error: -endpoint is required")
		flag.Usage()
		os.Exit(1)
	}

	if c.Concurrency == 0 {
		c.Concurrency = c.Rate / 20 // Auto-scale workers
		if c.Concurrency < 50 {
			c.Concurrency = 50
		}
	}
	if c.Scopes < 1 {
		c.Scopes = 1
	}
	if c.Users < 1 {
		c.Users = 1
	}

	return c
}

type Stats struct {
	ok      uint64
	errors  uint64
	latency int64 // microseconds
}

func (s *Stats) AddOK(duration time.Duration) {
	atomic.AddUint64(&s.ok, 1)
	atomic.AddInt64(&s.latency, duration.Microseconds())
}

func (s *Stats) AddError() {
	atomic.AddUint64(&s.errors, 1)
}

func (s *Stats) StartLogger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastOK, lastErr uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := atomic.LoadUint64(&s.ok)
			errs := atomic.LoadUint64(&s.errors)
			latTotal := atomic.LoadInt64(&s.latency)

			curOK := ok - lastOK
			curErr := errs - lastErr
			lastOK, lastErr = ok, errs

			avgLat := 0.0
			if ok > 0 {
				avgLat = float64(latTotal) / float64(ok) / 1000.0
			}

			log.Printf("[STATS] 1s -> OK: %d | ERR: %d | AvgLat: %.2fms | Total OK: %d", curOK, curErr, avgLat, ok)
		}
	}
}

func main() {
	cfg := parseFlags()
	stats := &Stats{}

	// High-performance HTTP Client
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency, // Critical: Keep as many connections open as there are workers.
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("Starting Load Test: Target=%s Rate=%d/s Total=%d Workers=%d", cfg.Endpoint, cfg.Rate, cfg.Total, cfg.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stats Logger
	go stats.StartLogger(ctx)

	// Job Queue
	jobs := make(chan struct{}, cfg.Rate*2)
	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rngs := make([]*rand.Rand, cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		rngs[i] = rand.New(rand.NewSource(rng.Int63()))
	}

	// Workers
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go startWorker(client, cfg, jobs, stats, rngs[i], &wg)
	}

	// Rate Limiter (Main Loop)
	remaining := cfg.Total
	for remaining > 0 {
		start := time.Now()
		batch := cfg.Rate
		if remaining < batch {
			batch = remaining
		}

		for i := 0; i < batch; i++ {
			jobs <- struct{}{}
		}
		remaining -= batch

		elapsed := time.Since(start)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	log.Printf("DONE. Total OK: %d | Total Errors: %d", atomic.LoadUint64(&stats.ok), atomic.LoadUint64(&stats.errors))
}

func startWorker(client *http.Client, cfg *Config, jobs <-chan struct{}, stats *Stats, rng *rand.Rand, wg *sync.WaitGroup) {
	defer wg.Done()

	headers := http.Header{"Content-Type": []string{"application/json"}}

	for range jobs {
		event := generateRandomEvent(rng, cfg)
		start := time.Now()

		err := sendEvent(client, cfg.Endpoint, event, headers)
		if err != nil {
			stats.AddError()
			// Optional: Log the error
			// log.Printf("Error: %v", err)
		} else {
			stats.AddOK(time.Since(start))
		}
	}
}

func sendEvent(client *http.Client, url string, data any, headers http.Header) error {
	body, _ := json.Marshal(data)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header = headers

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	// Performance Hack: Read and discard the Body so the connection can be reused (Keep-Alive)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return nil
}

var (
	fileTypes   = []string{"pdf", "docx", "txt", "csv"}
	domains     = []string{"github.com", "docs.python.org", "pkg.go.dev", "stackoverflow.com"}
	statuses    = []string{"completed", "completed", "completed", "abandoned"}
	topics      = []string{"billing", "onboarding", "search", "integrations"}
	features    = []string{"chat", "upload", "share", "search"}
	errorKinds  = []string{"timeout", "rate_limited", "upstream"}
	searchTerms = []string{"invoice", "api key", "pricing", "setup guide"}
)

// generateRandomEvent draws one tracking payload, weighted towards chat
// traffic the way a busy assistant would produce it.
func generateRandomEvent(rng *rand.Rand, cfg *Config) map[string]any {
	scope := fmt.Sprintf("chat_%03d", rng.Intn(cfg.Scopes))
	user := fmt.Sprintf("user_%d", rng.Intn(cfg.Users))

	switch n := rng.Intn(100); {
	case n < 40:
		return map[string]any{"kind": "chat_activity", "scope": scope, "user_id": user, "message_count": 1 + rng.Intn(3)}
	case n < 50:
		return map[string]any{"kind": "user_activity", "user_id": user}
	case n < 58:
		return map[string]any{"kind": "chat_completion", "scope": scope, "status": pick(rng, statuses), "value": rng.Float64() * 4, "topic": pick(rng, topics)}
	case n < 64:
		return map[string]any{"kind": "document_upload", "scope": scope, "user_id": user, "file_type": pick(rng, fileTypes), "file_size": 1024 + rng.Intn(5<<20)}
	case n < 70:
		domain := pick(rng, domains)
		return map[string]any{"kind": "link_share", "scope": scope, "user_id": user, "domain": domain, "url": "https://" + domain + "/" + user}
	case n < 76:
		return map[string]any{"kind": "response_time", "value": rng.Float64() * 3}
	case n < 80:
		return map[string]any{"kind": "satisfaction", "scope": scope, "value": float64(1 + rng.Intn(5))}
	case n < 84:
		docID := fmt.Sprintf("doc_%d", rng.Intn(200))
		return map[string]any{"kind": "document_processing", "scope": scope, "doc_id": docID, "success": rng.Intn(10) > 0, "value": rng.Float64() * 10}
	case n < 88:
		docID := fmt.Sprintf("doc_%d", rng.Intn(200))
		return map[string]any{"kind": "document_access", "scope": scope, "doc_id": docID, "query": pick(rng, searchTerms)}
	case n < 91:
		return map[string]any{"kind": "link_health", "scope": scope, "domain": pick(rng, domains), "active": rng.Intn(5) > 0}
	case n < 95:
		return map[string]any{"kind": "user_session", "user_id": user, "value": rng.Float64() * 1800, "features": []string{pick(rng, features), pick(rng, features)}}
	case n < 98:
		return map[string]any{"kind": "user_retention", "user_id": user}
	default:
		return map[string]any{"kind": "error", "error_kind": pick(rng, errorKinds)}
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
