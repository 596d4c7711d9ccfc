package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/bundlescope/internal/scoredb"
	"github.com/vanderheijden86/bundlescope/pkg/config"
	"github.com/vanderheijden86/bundlescope/pkg/debug"
	"github.com/vanderheijden86/bundlescope/pkg/loader"
	"github.com/vanderheijden86/bundlescope/pkg/store"
	"github.com/vanderheijden86/bundlescope/pkg/ui"
	"github.com/vanderheijden86/bundlescope/pkg/version"
	"github.com/vanderheijden86/bundlescope/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	manifestFlag := flag.String("stats", "", "Path to the bundler stats file (default: discovered in the current directory)")
	noWatch := flag.Bool("no-watch", false, "Disable live reload of the stats file")
	memScores := flag.Bool("mem-scores", false, "Keep scores in memory only (no scores.db)")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: bsc [options] [stats-file]")
		fmt.Println("\nA terminal viewer for bundler stats files.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("bsc %s\n", version.Version)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		debug.Log("config: %v", cfgErr)
		cfg = config.DefaultConfig()
	}

	manifestPath := *manifestFlag
	if manifestPath == "" && flag.NArg() > 0 {
		manifestPath = flag.Arg(0)
	}
	if manifestPath == "" {
		var err error
		manifestPath, err = loader.FindManifestPath(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding stats file: %v\n", err)
			fmt.Fprintln(os.Stderr, "Run your bundler with stats output enabled, or pass a path explicitly.")
			os.Exit(1)
		}
	}

	manifest, err := loader.Load(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", manifestPath, err)
		os.Exit(1)
	}

	// Score persistence: scores.db next to the manifest, unless disabled.
	var scores store.ScoreStore
	if *memScores {
		scores = store.NewMemScores()
	} else {
		dir := cfg.ScoreDir
		if dir == "" {
			dir = scoredb.Dir(manifestPath)
		}
		db, err := scoredb.Open(dir)
		if err != nil {
			debug.Log("scoredb: %v, falling back to in-memory scores", err)
			scores = store.NewMemScores()
		} else {
			defer db.Close()
			scores = db
		}
	}

	st := store.New(scores)
	st.Init(loader.Nodes(manifest))

	// Extra manifests from config are appended as additional roots.
	if len(cfg.Manifests) > 0 {
		batches, err := loader.LoadAll(context.Background(), cfg.Manifests)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading extra manifests: %v\n", err)
			os.Exit(1)
		}
		st.AddModules(batches)
	}

	m := ui.NewModel(st, cfg, manifestPath)
	if cfg.Watch.Enabled && !*noWatch {
		w, err := watcher.New(manifestPath,
			watcher.WithDebounceDuration(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
			watcher.WithForcePoll(cfg.Watch.ForcePoll),
		)
		if err != nil {
			debug.Log("watch: %v", err)
		} else {
			m = m.WithWatcher(w)
		}
	}
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running bundlescope: %v\n", err)
		os.Exit(1)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set BSC_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("BSC_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

