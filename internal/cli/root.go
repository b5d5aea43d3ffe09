package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/julianstephens/restreak/internal/backup"
	"github.com/julianstephens/restreak/internal/config"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/events"
	"github.com/julianstephens/restreak/internal/keyring"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/mentor"
	"github.com/julianstephens/restreak/internal/notifier"
	"github.com/julianstephens/restreak/internal/storage"
	"github.com/julianstephens/restreak/internal/utils"
)

// Context is handed to every command. The engine is started on first use so
// commands that only touch the store (init, migrate, keyring) never run it.
type Context struct {
	Config *config.Config
	// ConfigPath is where init writes a starter config.yaml.
	ConfigPath string
	Store      storage.Provider
	Out        io.Writer

	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	engine  *engine.Engine
	err     error
	done    chan struct{}
	closers []func()
}

func NewContext(ctx context.Context, cfg *config.Config, store storage.Provider) *Context {
	ctx, cancel := context.WithCancel(ctx)
	return &Context{
		Config: cfg,
		Store:  store,
		Out:    os.Stdout,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Ctx is cancelled on interrupt or Close.
func (c *Context) Ctx() context.Context { return c.ctx }

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// Engine starts the engine over the loaded store and blocks until its first
// view is published.
func (c *Context) Engine() (*engine.Engine, error) {
	c.once.Do(func() {
		c.engine, c.err = c.startEngine()
	})
	return c.engine, c.err
}

func (c *Context) startEngine() (*engine.Engine, error) {
	clock, err := utils.NewSystemClock(c.Config.Timezone)
	if err != nil {
		return nil, err
	}
	locker, closeLocker, err := NewLocker(c.ctx, c.Config)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeLocker)

	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithLocker(locker),
		engine.WithSettleTimeout(c.Config.SettleTimeout),
	}
	if c.Config.AMQP.URL != "" {
		pub, err := events.NewPublisher(c.Config.AMQP.URL, c.Config.AMQP.Exchange)
		if err != nil {
			// events are best effort; habits still work without the broker
			logger.Warn("AMQP publisher unavailable", "error", err)
		} else {
			c.closers = append(c.closers, pub.Close)
			opts = append(opts, engine.WithEventSink(pub))
		}
	}
	if c.Config.Notifications {
		opts = append(opts, engine.WithEventSink(notifier.New()))
	}

	eng := engine.New(c.Store, opts...)
	c.done = make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		defer close(c.done)
		if err := eng.Run(c.ctx); err != nil {
			logger.Error("Engine stopped", "error", err)
			errCh <- err
		}
	}()

	ready := make(chan error, 1)
	go func() { ready <- eng.WaitReady(c.ctx) }()
	select {
	case err := <-errCh:
		return nil, err
	case err := <-ready:
		if err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// Mentor returns a client when a Gemini key is configured, nil otherwise.
func (c *Context) Mentor() *mentor.Client {
	key := c.Config.Mentor.APIKey
	if key == "" {
		key = keyring.Lookup(keyring.GeminiAPIKey)
	}
	if key == "" {
		return nil
	}
	return mentor.New(mentor.Config{
		APIKey:        key,
		Model:         c.Config.Mentor.Model,
		BaseURL:       c.Config.Mentor.BaseURL,
		RatePerMinute: c.Config.Mentor.RatePerMinute,
	})
}

// PerformAutomaticBackup snapshots a sqlite database. Failures are only
// logged.
func (c *Context) PerformAutomaticBackup() {
	if c.Config.Backend != constants.BackendSQLite {
		return
	}
	if _, err := backup.NewManager(c.Config.SQLite.Path).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Close stops the engine and releases the store and any adapters.
func (c *Context) Close() {
	c.cancel()
	if c.done != nil {
		<-c.done
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}
}
