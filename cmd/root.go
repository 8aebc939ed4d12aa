package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/config"
	"github.com/abhisek/phishshift/internal/keylock"
	"github.com/abhisek/phishshift/internal/logging"
	"github.com/abhisek/phishshift/internal/selector"
	"github.com/abhisek/phishshift/internal/shift"
	"github.com/abhisek/phishshift/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "phishshift",
	Short:        "Phishing awareness training shifts",
	Long:         "phishshift runs short inbox shifts where learners triage realistic messages and learn from every call.",
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime is what a command needs once configuration is resolved.
type runtime struct {
	cfg   config.Config
	log   *logging.Logger
	store *store.Store

	closers []func() error
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Mode: cfg.LogMode, Salt: cfg.LogSalt})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if cfg.File != "" {
		log.Debug("config file loaded", "path", cfg.File)
	}

	s, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &runtime{cfg: cfg, log: log, store: s}, nil
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.log.Warn("close failed", "error", err)
		}
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn("close database", "error", err)
	}
	r.log.Sync()
}

// locker returns a redis-backed locker when an address is configured so
// several processes can share one database safely.
func (r *runtime) locker(ctx context.Context) (keylock.Locker, error) {
	if r.cfg.RedisAddr == "" {
		return keylock.NewLocal(), nil
	}
	rdb, err := keylock.Dial(ctx, r.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, rdb.Close)
	r.log.Info("using redis session locks", "addr", r.cfg.RedisAddr)
	return keylock.NewRedis(rdb), nil
}

func (r *runtime) engine(ctx context.Context) (*shift.Engine, error) {
	locker, err := r.locker(ctx)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return shift.New(shift.Config{
		Sessions:           r.store.Sessions(),
		Decisions:          r.store.Decisions(),
		Progress:           r.store.Progress(),
		Scenarios:          r.store.Scenarios(),
		Tx:                 r.store,
		Selector:           selector.New(r.store.Scenarios(), rng),
		Locker:             locker,
		Logger:             r.log,
		ShiftSize:          r.cfg.ShiftSize,
		VerificationBudget: r.cfg.VerificationBudget,
	}), nil
}
