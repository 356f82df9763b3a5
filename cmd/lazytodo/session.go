package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/storage"
	"github.com/Joseda-hg/lazytodo/internal/store"
	"github.com/Joseda-hg/lazytodo/internal/tui"
)

type historyLister interface {
	ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error)
}

// session is one loaded task collection plus the resources backing it.
type session struct {
	cfg        config.Config
	configPath string
	store      *store.Store
	history    historyLister
	db         *sql.DB
}

func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *session) defaultQuery() model.Query {
	q := model.DefaultQuery()
	q.SortBy = model.ParseSortKey(s.cfg.DefaultSort)
	return q
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	cfgPath, err := resolveConfigPath(opts.configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Save(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	if opts.backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
	}
	if opts.dataPath != "" {
		cfg.DataPath = opts.dataPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DataPath == "" {
		cfg.DataPath = cfg.DefaultDataPath(cfgPath)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	sess := &session{cfg: cfg, configPath: cfgPath}

	var slot storage.Slot
	var storeOpts []store.Option
	switch cfg.Backend {
	case config.BackendFile:
		slot = storage.NewFileSlot(cfg.DataPath)
	default:
		if err := config.EnsureDir(cfg.DataPath); err != nil {
			return nil, err
		}
		db, err := storage.OpenSQLite(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqliteSlot := storage.NewSQLiteSlot(db, cfg.SlotName)
		sess.db = db
		sess.history = sqliteSlot
		slot = sqliteSlot
		storeOpts = append(storeOpts, store.WithJournal(sqliteSlot))
	}

	adapter := storage.NewAdapter(slot)
	tasks := adapter.Load(ctx)
	logger.Debug("loaded tasks", "backend", cfg.Backend, "path", cfg.DataPath, "count", len(tasks))

	sess.store = store.New(tasks, append(storeOpts, store.WithPersister(adapter))...)
	return sess, nil
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	sess, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	logPath := filepath.Join(filepath.Dir(sess.configPath), "lazytodo.log")
	if err := config.EnsureDir(logPath); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.SetOutput(logFile)
	defer logger.SetOutput(os.Stderr)

	return tui.Run(sess.store, sess.history, sess.defaultQuery())
}

// resolveID accepts a full id or a prefix that matches exactly one task.
func resolveID(s *store.Store, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", store.ErrEmptyID
	}
	if _, ok := s.Get(arg); ok {
		return arg, nil
	}

	var matches []string
	for _, task := range s.Tasks() {
		if strings.HasPrefix(task.ID, arg) {
			matches = append(matches, task.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", store.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q matches %d tasks", arg, len(matches))
	}
}
