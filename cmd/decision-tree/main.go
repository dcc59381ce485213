package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/config"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/cycles"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/editor"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/metrics"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/output"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/store"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/watcher"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/web"
)

func main() {
	// Parse command-line flags
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	level, err := logging.ParseVerbosity(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		logging.Fatal("invalid verbosity", "error", err)
	}
	logging.Configure(os.Stderr, level, cfg.LogFormat == "json")

	session := editor.New(editor.Options{RejectDuplicateEdges: cfg.RejectDuplicates})

	if cfg.WebMode {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runWeb(ctx, cfg, session); err != nil {
			logging.Fatal("web server failed", "error", err)
		}
		return
	}

	if err := runReport(cfg, session); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runReport validates the document once and prints the result. Warnings never
// fail the run; only I/O errors do.
func runReport(cfg *config.Config, session *editor.Session) error {
	if cfg.Watch {
		logging.Warn("--watch only applies with --web, ignoring")
	}

	if cfg.File == "" {
		session.ResetToSample()
	} else {
		g, err := store.Load(cfg.File)
		if err != nil && !store.IsMalformed(err) {
			return err
		}
		if err != nil {
			logging.Warn("document is malformed", "path", cfg.File, "error", err)
		}
		session.Replace(g)
	}

	updated := 0
	if cfg.AutoCompute {
		updated = session.AutoCompute()
	}

	g := session.Graph()
	output.PrintReport(os.Stdout, g, output.Report{
		Source:   cfg.File,
		Summary:  model.Summarize(g),
		Warnings: session.Warnings(),
		Cycles:   cycles.FindCycles(g),
		Updated:  updated,
	})

	if cfg.Save {
		if cfg.File == "" {
			return errors.New("--save needs --file")
		}
		if err := store.Save(cfg.File, g); err != nil {
			return err
		}
		logging.Info("saved document", "path", cfg.File)
	}
	return nil
}

// runWeb serves the editor until ctx is cancelled. With --watch the document is
// reloaded whenever it changes on disk; with --save it is written back on exit.
func runWeb(ctx context.Context, cfg *config.Config, session *editor.Session) error {
	if err := seedSession(cfg, session); err != nil {
		return err
	}
	if cfg.AutoCompute {
		session.AutoCompute()
	}

	server := web.NewServer(session, metrics.NewCollector())

	if cfg.Watch {
		if cfg.File == "" {
			logging.Warn("--watch needs --file, not watching")
		} else if err := startWatcher(ctx, cfg.File, server); err != nil {
			return err
		}
	}

	if cfg.OpenBrowser {
		go func() {
			// Give the listener a moment before the browser connects
			time.Sleep(500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
		}()
	}

	if err := server.Start(ctx, cfg.Port); err != nil {
		return err
	}

	if cfg.Save && cfg.File != "" {
		if err := store.Save(cfg.File, server.Snapshot()); err != nil {
			return err
		}
		logging.Info("saved document", "path", cfg.File)
	}
	return nil
}

// seedSession loads --file into the session. A file that does not exist yet
// starts an empty (or sample) graph.
func seedSession(cfg *config.Config, session *editor.Session) error {
	if cfg.File == "" {
		if cfg.Sample {
			session.ResetToSample()
		}
		return nil
	}

	g, err := store.Load(cfg.File)
	switch {
	case err == nil:
		logging.Info("loaded document", "path", cfg.File, "nodes", len(g.Nodes), "edges", len(g.Edges))
		session.Replace(g)
	case store.IsMalformed(err):
		logging.Warn("document is malformed, starting empty", "path", cfg.File, "error", err)
		session.Replace(g)
	case errors.Is(err, fs.ErrNotExist):
		logging.Info("document does not exist yet", "path", cfg.File)
		if cfg.Sample {
			session.ResetToSample()
		}
	default:
		return err
	}
	return nil
}

func startWatcher(ctx context.Context, path string, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 200*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	go watcher.Follow(ctx, debouncer.Output(), fw.Path(), server.Reload)
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
