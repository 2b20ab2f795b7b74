package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/config"
	"frida-keeper/internal/env"
	"frida-keeper/internal/logger"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var (
	optBoot       bool
	optKeepServer bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the keeper daemon serving the control API",
	Long: `Run in the foreground and serve the control API on the configured TCP address
and unix socket. The daemon owns the frida server it starts and keeps its output
in the session log.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDaemon(context.Background()); err != nil {
			logger.Fatal(err)
		}
	},
}

// 单实例锁，避免两个守护进程争抢同一个frida-server
func acquireLock() (*flock.Flock, error) {
	path := filepath.Join(env.KeeperDir, "run", "keeper.lock")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another keeper daemon is running (lock held on %s)", path)
	}
	return lock, nil
}

/**
 * Run the daemon until SIGINT/SIGTERM
 * @description
 * - Holds the single instance lock for its whole lifetime
 * - With --boot, applies the auto start preference once listening
 * - On exit the owned server is stopped, its output pipes die with the daemon
 */
func runDaemon(ctx context.Context) error {
	env.Daemon = true
	lock, err := acquireLock()
	if err != nil {
		return err
	}
	defer lock.Unlock()

	cfg := config.App()
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := controllers.NewRouter(keeper, cfg.Metrics.Enabled)

	addrs := []ListenAddr{{Network: "tcp", Address: cfg.Server.Address}}
	if cfg.Server.Socket != "" && IsUnixSocketSupported() {
		addrs = append(addrs, ListenAddr{Network: "unix", Address: cfg.Server.Socket})
	}
	listeners, err := CreateListeners(addrs)
	if len(listeners) == 0 {
		return fmt.Errorf("no listener could be created: %w", err)
	}

	srv := &http.Server{Handler: router}
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		go func(l net.Listener) {
			logger.Infof("Keeper daemon listening on %s://%s", l.Addr().Network(), l.Addr().String())
			errCh <- srv.Serve(l)
		}(l)
	}

	if optBoot {
		if _, started, err := keeper.Boot(services.StartOptions{}); err != nil {
			logger.Warnf("Boot: %v", err)
		} else if started {
			logger.Info("Boot: frida server start requested")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
		logger.Info("Shutting down keeper daemon")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Listener failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	if !optKeepServer {
		keeper.Server().Terminate(shutdownCtx)
	}
	if cfg.Server.Socket != "" {
		os.Remove(cfg.Server.Socket)
	}
	return nil
}

func init() {
	daemonCmd.Flags().BoolVar(&optBoot, "boot", false, "Apply the auto start preference after startup")
	daemonCmd.Flags().BoolVar(&optKeepServer, "keep-server", false, "Leave frida server running on exit")
	root.RootCmd.AddCommand(daemonCmd)
}
