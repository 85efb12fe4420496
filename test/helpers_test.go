//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/edgeauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const integrationSecret = "integration-secret-0123456789abcdefgh"

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns the backends to test. miniredis is always available.
// REDIS_ADDR adds a standalone server, REDIS_CLUSTER_ADDRS a cluster and
// REDIS_SENTINEL_ADDRS (with REDIS_SENTINEL_MASTER) a sentinel deployment.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			t.Helper()
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewClient(&redis.Options{Addr: addr}), true)
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)}), false)
			},
		})
	}

	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				}), true)
			},
		})
	}

	return modes
}

func connect(t *testing.T, rdb redis.UniversalClient, flush bool) redis.UniversalClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("cannot connect to Redis: %v", err)
	}
	if flush {
		rdb.FlushDB(context.Background())
	}
	t.Cleanup(func() {
		if flush {
			rdb.FlushDB(context.Background())
		}
		_ = rdb.Close()
	})
	return rdb
}

func splitAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient, mutate func(*edgeauth.Config)) *edgeauth.Engine {
	t.Helper()
	cfg := edgeauth.DefaultConfig()
	cfg.JWT.Secret = []byte(integrationSecret)
	cfg.Store.RedisPrefix = "it"
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := edgeauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
