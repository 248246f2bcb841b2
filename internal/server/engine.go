package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lunamoth/driftwood/internal/config"
	"github.com/lunamoth/driftwood/internal/persistence"
	"github.com/lunamoth/driftwood/internal/resp"
	"github.com/lunamoth/driftwood/internal/store"
	"go.uber.org/zap"
)

// Engine is the command dispatcher and concurrency coordinator: it maps
// command names to handlers over one shared store and owns the background
// snapshot task and the shutdown sequencing.
type Engine struct {
	commands map[string]command // registry of handlers (key is the command name in uppercase)
	store    *store.Store
	cfg      *config.Config
	snap     *persistence.Snapshot
	saveMu   sync.Mutex    // timer-driven and shutdown saves never overlap
	stopCh   chan struct{} // signals the autosave loop to stop
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewEngine registers the command set and, if persistence is enabled,
// loads the snapshot and starts the autosave loop. A snapshot that exists
// but cannot be decoded is a fatal startup condition: the error is
// returned before any command can run against a partially loaded store.
func NewEngine(db *store.Store, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	engine := &Engine{
		commands: make(map[string]command),
		store:    db,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
	engine.registerBasicCommands()

	if cfg.Snapshot.Enabled {
		engine.snap = persistence.New(cfg.Snapshot.Path, logger)

		if err := engine.snap.Load(db); err != nil {
			return nil, fmt.Errorf("snapshot load: %w", err)
		}

		if cfg.Snapshot.Interval > 0 {
			engine.wg.Add(1)
			go engine.autosaveLoop(cfg.Snapshot.Interval)
		}
	}

	return engine, nil
}

// autosaveLoop drives periodic snapshot saves until Shutdown.
func (e *Engine) autosaveLoop(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.save()
		case <-e.stopCh:
			return
		}
	}
}

// save writes one snapshot. A write failure is logged and absorbed; the
// previous snapshot on disk stays valid because saves replace it
// atomically.
func (e *Engine) save() {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if err := e.snap.Save(e.store); err != nil {
		e.logger.Error("snapshot save failed", zap.Error(err))
	}
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommands fills the registry with the full command surface
func (e *Engine) registerBasicCommands() {
	e.register("PING", commandFunc(ping))
	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("EXPIRE", commandFunc(expire))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))
	e.register("LPUSH", commandFunc(lpush))
	e.register("RPUSH", commandFunc(rpush))
	e.register("LPOP", commandFunc(lpop))
	e.register("RPOP", commandFunc(rpop))
	e.register("LLEN", commandFunc(llen))
	e.register("LRANGE", commandFunc(lrange))
	e.register("HSET", commandFunc(hset))
	e.register("HGET", commandFunc(hget))
	e.register("HDEL", commandFunc(hdel))
	e.register("HGETALL", commandFunc(hgetall))
	e.register("HEXISTS", commandFunc(hexists))
	e.register("KEYS", commandFunc(keys))
	e.register("FLUSHALL", commandFunc(flushall))
	e.register("COMMAND", commandFunc(cmd))

	e.register("SAVE", commandFunc(func(ctx *context) resp.Value {
		if e.snap == nil {
			return resp.MakeError("ERR snapshots disabled")
		}
		e.saveMu.Lock()
		defer e.saveMu.Unlock()
		if err := e.snap.Save(e.store); err != nil {
			return resp.MakeError("ERR " + err.Error())
		}
		return resp.MakeSimpleString("OK")
	}))

	e.register("BGSAVE", commandFunc(func(ctx *context) resp.Value {
		if e.snap == nil {
			return resp.MakeError("ERR snapshots disabled")
		}
		go e.save()
		return resp.MakeSimpleString("Background saving started")
	}))
}

// Execute validates the request against the command registry and runs the
// handler. Unknown commands and arity violations are replied without
// touching the store; an engine-level failure never escalates past the
// reply, so the connection stays usable.
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", name))
	}

	if meta, ok := commandRegistry[name]; ok && !checkArity(meta.arity, len(args)+1) {
		return resp.MakeErrorWrongNumberOfArguments(name)
	}

	ctx := &context{
		args:  args,
		store: e.store,
	}
	return cmd.execute(ctx)
}

// Shutdown stops the autosave loop and runs one final save. Safe to call
// more than once; callers stop accepting connections before invoking it.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.wg.Wait()

		if e.snap != nil {
			e.save()
		}
		e.logger.Info("engine stopped")
	})
}
