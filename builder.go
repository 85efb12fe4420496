package edgeauth

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/edgeauth/internal/audit"
	internalflows "github.com/MrEthical07/edgeauth/internal/flows"
	"github.com/MrEthical07/edgeauth/internal/rate"
	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/kv"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config Config
	store  kv.Store
	redis  redis.UniversalClient

	authenticator Authenticator
	auditSink     AuditSink
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. It is copied and validated in Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the key-value store directly. It takes precedence over WithRedis.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRedis backs the engine with Redis, keys prefixed by Config.Store.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuthenticator sets the credential check used by Engine.Login.
func (b *Builder) WithAuthenticator(a Authenticator) *Builder {
	b.authenticator = a
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock overrides time.Now for token stamps, expiry checks, rate windows and the
// in-memory store.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides session and token id generation. Ids must never repeat.
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the access guard latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. Without WithStore or
// WithRedis the engine runs on an in-process store.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = session.NewID
	}
	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("edgeauth")

	// -------- KV STORE --------
	var store kv.Store
	switch {
	case b.store != nil:
		store = b.store
	case b.redis != nil:
		store = kv.NewRedis(b.redis, cfg.Store.RedisPrefix)
	default:
		if cfg.Production {
			return nil, errors.New("production mode requires a redis client or store")
		}
		log.Warn("no redis client configured; using in-memory store")
		store = kv.NewMemory(now)
	}
	store = kv.WithTimeout(store, cfg.Store.OpTimeout)

	// -------- TOKEN CODEC --------
	tokens, err := jwt.NewManager(jwt.Config{
		Secret: cloneBytes(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(store)
	roles := permission.NewResolver(store, cfg.Admin.toPermission())
	metrics := NewMetrics(cfg.Metrics)

	engine := &Engine{
		config:        cfg,
		tokens:        tokens,
		store:         store,
		sessions:      sessions,
		roles:         roles,
		limiter:       rate.New(store, now),
		authenticator: b.authenticator,
		metrics:       metrics,
		log:           log,
		now:           now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		FlushTimeout: cfg.Audit.FlushTimeout,
		OnDrop:       engine.auditDropped,
	}, b.auditSink)

	issue := internalflows.IssueDeps{
		Tokens:     tokens,
		Sessions:   sessions,
		NewID:      newID,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}
	engine.flows = internalflows.Deps{
		Login: internalflows.LoginDeps{
			Issue: issue,
			Roles: roles,
			Now:   now,
			Warn:  engine.warn,
		},
		Refresh: internalflows.RefreshDeps{
			Issue: issue,
			Roles: roles,
			Warn:  engine.warn,
		},
		Logout: internalflows.LogoutDeps{
			Tokens:   tokens,
			Sessions: sessions,
		},
		Validate: internalflows.ValidateDeps{
			Tokens: tokens,
			Roles:  roles,
		},
	}

	b.built = true
	log.Info("engine built", zap.Stringer("config", cfg))

	return engine, nil
}
