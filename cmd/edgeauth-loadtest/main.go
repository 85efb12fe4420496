package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	userID  string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to open")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		replays     = flag.Int("replays", 1000, "sessions attacked with a replayed refresh token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *replays < 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := edgeauth.DefaultConfig()
	cfg.JWT.Secret = []byte("loadtest-secret-0123456789abcdefghij")
	cfg.Store.RedisPrefix = *prefix
	engine, err := edgeauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("opening %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		uid := fmt.Sprintf("user-%d", i)
		res, err := engine.LoginIdentity(ctx, edgeauth.Identity{UserID: uid, Email: uid + "@loadtest.local"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].userID = uid
		states[i].access = res.AccessToken
		states[i].refresh = res.RefreshToken
	}
	fmt.Printf("opened in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runValidatePhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)
	detected, missed := runReplayPhase(ctx, engine, states, *replays, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	fmt.Printf("replay: attacked=%d detected=%d missed=%d\n", min(*replays, len(states)), detected, missed)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: refresh_success=%d refresh_reuse=%d sessions_revoked=%d\n",
		snap.Counters[edgeauth.MetricRefreshSuccess],
		snap.Counters[edgeauth.MetricRefreshReuseDetected],
		snap.Counters[edgeauth.MetricSessionRevoked],
	)
	if missed > 0 {
		os.Exit(1)
	}
}

// runValidatePhase exercises the request path: stateless token check plus role
// resolution against the store.
func runValidatePhase(ctx context.Context, engine *edgeauth.Engine, states []sessionState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		access := st.access
		st.mu.Unlock()

		claims, err := engine.RequireAccessToken(access)
		if err != nil {
			return err
		}
		_, err = engine.RequireRole(ctx, claims, permission.RoleUser)
		return err
	})
}

// runRefreshPhase rotates random sessions. The per-session lock keeps each chain
// linear, so every failure here is a real error.
func runRefreshPhase(ctx context.Context, engine *edgeauth.Engine, states []sessionState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()

		pair, err := engine.Refresh(ctx, st.refresh)
		if err != nil {
			return err
		}
		st.access = pair.AccessToken
		st.refresh = pair.RefreshToken
		return nil
	})
}

// runReplayPhase rotates a session once, then presents the consumed token again.
// Every replay must be rejected and must take the session down with it.
func runReplayPhase(ctx context.Context, engine *edgeauth.Engine, states []sessionState, replays, concurrency int) (detected, missed int64) {
	if replays > len(states) {
		replays = len(states)
	}
	var (
		wg     sync.WaitGroup
		cursor int64
	)
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= replays {
					return
				}
				st := &states[i]
				st.mu.Lock()
				stolen := st.refresh
				pair, err := engine.Refresh(ctx, stolen)
				if err != nil {
					st.mu.Unlock()
					atomic.AddInt64(&missed, 1)
					continue
				}
				st.refresh = pair.RefreshToken
				st.mu.Unlock()

				_, reuseErr := engine.Refresh(ctx, stolen)
				_, afterErr := engine.Refresh(ctx, pair.RefreshToken)
				if errors.Is(reuseErr, edgeauth.ErrRefreshReuse) && errors.Is(afterErr, edgeauth.ErrSessionRevoked) {
					atomic.AddInt64(&detected, 1)
				} else {
					atomic.AddInt64(&missed, 1)
				}
			}
		}()
	}
	wg.Wait()
	return detected, missed
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
