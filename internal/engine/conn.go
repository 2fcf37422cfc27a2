package engine

import (
	"context"
	"fmt"
	"sync"

	"etlcore/internal/dialect"
	"etlcore/internal/etlerr"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Driver string
	DSN    string
}

// Conn holds one long-lived database handle. After a failed Open or
// Reconnect it stays unusable until a Reconnect succeeds.
type Conn struct {
	mu      sync.Mutex
	cfg     Config
	db      *sqlx.DB
	d       dialect.Dialect
	log     logrus.FieldLogger
	lastErr error
}

// Open connects and pings once. The returned Conn is never nil, so callers
// may Reconnect after an error.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Conn, error) {
	c := &Conn{cfg: cfg, d: dialect.GetDialect(cfg.Driver), log: log}
	return c, c.connect(ctx, cfg.DSN)
}

// Reconnect replaces the handle. An empty dsn reuses the last one.
func (c *Conn) Reconnect(ctx context.Context, dsn string) error {
	if dsn == "" {
		dsn = c.cfg.DSN
	}
	return c.connect(ctx, dsn)
}

func (c *Conn) connect(ctx context.Context, dsn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		c.db.Close()
		c.db = nil
	}

	db, err := sqlx.Open(c.cfg.Driver, dsn)
	if err == nil {
		if err = db.PingContext(ctx); err != nil {
			db.Close()
		}
	}
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %s: %w", etlerr.ErrConnection, c.cfg.Driver, err)
		c.log.WithField("driver", c.cfg.Driver).WithError(err).Error("Database connection failed")
		return c.lastErr
	}

	c.cfg.DSN = dsn
	c.db = db
	c.lastErr = nil
	c.log.WithField("driver", c.cfg.Driver).Debug("Database connected")
	return nil
}

// DB returns the live handle, or the last connection error.
func (c *Conn) DB() (*sqlx.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		if c.lastErr != nil {
			return nil, c.lastErr
		}
		return nil, fmt.Errorf("%w: not connected", etlerr.ErrConnection)
	}
	return c.db, nil
}

func (c *Conn) Dialect() dialect.Dialect {
	return c.d
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
