// The governor daemon and CLI for PhantomOS: a policy engine that fronts
// every destructive choke-point with evaluation, transformation, and audit.
//
// Subcommands split into two groups: "start"/"stop"/"status"/"logs" manage
// the daemon, everything else is a thin HTTP client against the daemon's API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/phantomos/governor/internal/api"
	"github.com/phantomos/governor/internal/completion"
	"github.com/phantomos/governor/internal/config"
	"github.com/phantomos/governor/internal/daemon"
	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/logger"
	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/telemetry"
	"github.com/phantomos/governor/internal/tui"
	"github.com/phantomos/governor/internal/types"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var log = logger.New("main")

func main() {
	// Shell completion: handled before anything else so COMP_LINE invocations
	// stay fast and side-effect free.
	if completion.Run() {
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "start":
			runStart(os.Args[2:])
			return
		case "stop":
			runStop()
			return
		case "status":
			runStatus()
			return
		case "logs":
			runLogs(os.Args[2:])
			return
		case "evaluate":
			runEvaluate(os.Args[2:])
			return
		case "check":
			runCheck(os.Args[2:])
			return
		case "stats":
			runStats()
			return
		case "overview":
			runOverview()
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "audit":
			runAudit(os.Args[2:])
			return
		case "rollback":
			runRollback(os.Args[2:])
			return
		case "verify":
			runVerify(os.Args[2:])
			return
		case "scope":
			runScope(os.Args[2:])
			return
		case "cache":
			runCache(os.Args[2:])
			return
		case "flags":
			runFlags(os.Args[2:])
			return
		case "export":
			runExport(os.Args[2:])
			return
		case "completion":
			runCompletion(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			return
		case "version", "-v", "--version":
			fmt.Printf("governor version %s\n", Version)
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	// No subcommand - show help
	printUsage()
}

// =============================================================================
// Daemon lifecycle
// =============================================================================

// startOptions collects the start flags that override config values.
type startOptions struct {
	configPath    string
	logLevel      string
	noColor       bool
	port          int
	strict        bool
	auditAll      bool
	verbose       bool
	interactive   bool
	noCache       bool
	foreground    bool
	telemetry     bool
	retentionDays int
	patternsDir   string
}

// runStart handles the start subcommand
func runStart(args []string) {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	var opts startOptions
	startFlags.StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	startFlags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	startFlags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	startFlags.IntVar(&opts.port, "port", 0, "API server port (default from config)")
	startFlags.BoolVar(&opts.strict, "strict", false, "Auto-decline Medium and High threats")
	startFlags.BoolVar(&opts.auditAll, "audit-all", false, "Record every callout including Allows")
	startFlags.BoolVar(&opts.verbose, "verbose", false, "Expand response field length caps")
	startFlags.BoolVar(&opts.interactive, "interactive", false, "Prompt on the terminal for risky evaluations (implies --foreground)")
	startFlags.BoolVar(&opts.noCache, "no-cache", false, "Disable the evaluation cache")
	startFlags.BoolVar(&opts.foreground, "foreground", false, "Run in the foreground instead of daemonizing")
	startFlags.BoolVar(&opts.telemetry, "telemetry", false, "Enable the durable audit mirror")
	startFlags.IntVar(&opts.retentionDays, "retention-days", 0, "Audit mirror retention in days (0=use config default)")
	startFlags.StringVar(&opts.patternsDir, "patterns-dir", "", "User pattern directory (default from config)")
	daemonMode := startFlags.Bool("daemon-mode", false, "Internal: indicates running as daemon")
	_ = startFlags.Parse(args)

	// Interactive prompting needs a terminal, which a daemon doesn't have.
	if opts.interactive {
		opts.foreground = true
	}

	if *daemonMode || daemon.IsDaemonMode() || opts.foreground {
		runDaemon(&opts, !opts.foreground)
		return
	}

	if running, pid := daemon.IsRunning(); running {
		fmt.Printf("Governor is already running [PID %d]\n", pid)
		os.Exit(1)
	}

	// Re-exec ourselves detached. Mode flags travel as argv; secrets travel
	// as environment variables.
	daemonArgs := []string{"start", "--config", opts.configPath}
	if opts.logLevel != "" {
		daemonArgs = append(daemonArgs, "--log-level", opts.logLevel)
	}
	if opts.port > 0 {
		daemonArgs = append(daemonArgs, "--port", strconv.Itoa(opts.port))
	}
	for _, f := range []struct {
		set  bool
		name string
	}{
		{opts.strict, "--strict"},
		{opts.auditAll, "--audit-all"},
		{opts.verbose, "--verbose"},
		{opts.noCache, "--no-cache"},
		{opts.telemetry, "--telemetry"},
	} {
		if f.set {
			daemonArgs = append(daemonArgs, f.name)
		}
	}
	if opts.retentionDays > 0 {
		daemonArgs = append(daemonArgs, "--retention-days", strconv.Itoa(opts.retentionDays))
	}
	if opts.patternsDir != "" {
		daemonArgs = append(daemonArgs, "--patterns-dir", opts.patternsDir)
	}

	pid, err := daemon.Daemonize(daemonArgs)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Failed to start daemon: %v", err))
		os.Exit(1)
	}

	// Wait a moment for the daemon to come up
	time.Sleep(500 * time.Millisecond)
	if running, _ := daemon.IsRunning(); !running {
		tui.PrintError("Failed to start governor. Check logs:")
		fmt.Fprintf(os.Stderr, "  %s\n", daemon.LogFileDisplay())
		os.Exit(1)
	}

	tui.PrintSuccess(fmt.Sprintf("Governor started [PID %d]", pid))
	fmt.Printf("  Logs: %s\n", daemon.LogFileDisplay())
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  governor status  - Check status")
	fmt.Println("  governor logs    - View logs")
	fmt.Println("  governor stop    - Stop the governor")
}

// runDaemon runs the actual server, either as the re-executed daemon process
// or in the foreground.
func runDaemon(opts *startOptions, background bool) {
	if err := daemon.WritePID(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write PID file: %v\n", err)
		os.Exit(1)
	}
	defer daemon.CleanupPID()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v", err)
		os.Exit(1)
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		os.Exit(1)
	}
	if err := secrets.ValidateDBKey(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if secrets.DBKey != "" {
		cfg.Storage.EncryptionKey = secrets.DBKey
	}

	logger.SetGlobalLevelFromString(string(cfg.Server.LogLevel))
	if background || cfg.Server.NoColor {
		// No terminal attached, or colors disabled by config.
		logger.SetColored(false)
		tui.SetPlainMode(true)
	}

	log.Info("Starting governor daemon...")
	log.Debug("API token: %s", secrets.MaskAPIToken())

	// Pattern analyzer with optional hot reload
	patternDir := cfg.Patterns.UserDir
	if patternDir == "" {
		patternDir = config.DefaultPatternDir()
	}
	analyzer, err := scan.NewAnalyzer(patternDir)
	if err != nil {
		log.Error("Failed to load pattern tables: %v", err)
		os.Exit(1)
	}
	destructive, capability := analyzer.PatternCounts()
	log.Info("Patterns: %d destructive, %d capability", destructive, capability)

	var watcher *scan.Watcher
	if cfg.Patterns.Watch {
		watcher, err = scan.NewWatcher(analyzer)
		if err != nil {
			log.Warn("Failed to create pattern watcher: %v", err)
		} else if err := watcher.Start(); err != nil {
			log.Warn("Failed to start pattern watcher: %v", err)
			watcher = nil
		}
	}
	defer func() {
		if watcher != nil {
			_ = watcher.Stop()
		}
	}()

	// Durable audit mirror
	var storage *telemetry.Storage
	var recorder *telemetry.Recorder
	if cfg.Telemetry.Enabled {
		storage, err = telemetry.NewStorage(cfg.Storage.DBPath, cfg.Storage.EncryptionKey)
		if err != nil {
			log.Error("Failed to open audit mirror: %v", err)
			os.Exit(1)
		}
		defer storage.Close()

		if cfg.Telemetry.RetentionDays > 0 {
			if removed, err := storage.CleanupOldData(cfg.Telemetry.RetentionDays); err != nil {
				log.Warn("Audit mirror cleanup failed: %v", err)
			} else if removed > 0 {
				log.Info("Audit mirror: pruned %d entries older than %d days", removed, cfg.Telemetry.RetentionDays)
			}
		}

		recorder = telemetry.NewRecorder(storage)
		defer recorder.Close()
	}

	// The prompter only exists in interactive foreground mode.
	var prompter governor.Prompter
	if opts.interactive {
		if p := tui.NewTerminalPrompter(); p != nil {
			prompter = p
		} else {
			log.Warn("Interactive mode requested but stdin is not a terminal")
		}
	}

	flags := governorFlags(cfg, prompter != nil)
	govOpts := governor.Options{
		Analyzer:     analyzer,
		Prompter:     prompter,
		Flags:        flags,
		ApprovalCaps: types.ParseCapabilities(cfg.Governor.ApprovalCaps),
		CacheTTL:     time.Duration(cfg.Governor.CacheTTL) * time.Second,
	}
	if recorder != nil {
		govOpts.Recorder = recorder
	}
	gov := governor.New(govOpts)
	defer gov.Shutdown()
	if flags == 0 {
		// A fully-off config is distinguishable from "use defaults" only here.
		gov.SetFlags(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gov.Run(ctx)

	// HTTP API
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewAPIServer(gov, storage, secrets.APIToken).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	if err := daemon.WritePort(cfg.Server.Port); err != nil {
		log.Warn("Failed to write port file: %v", err)
	}

	log.Info("Governor listening on :%d (flags: %s)", cfg.Server.Port, gov.Flags())

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Governor stopped")
}

// applyOverrides folds CLI flags into the loaded config.
func applyOverrides(cfg *config.Config, opts *startOptions) {
	if opts.logLevel != "" {
		cfg.Server.LogLevel = types.LogLevel(opts.logLevel)
	}
	if opts.noColor {
		cfg.Server.NoColor = true
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.strict {
		cfg.Governor.Strict = true
	}
	if opts.auditAll {
		cfg.Governor.AuditAll = true
	}
	if opts.verbose {
		cfg.Governor.Verbose = true
	}
	if opts.interactive {
		cfg.Governor.Interactive = true
	}
	if opts.noCache {
		cfg.Governor.Cache = false
	}
	if opts.telemetry {
		cfg.Telemetry.Enabled = true
	}
	if opts.retentionDays > 0 {
		cfg.Telemetry.RetentionDays = opts.retentionDays
	}
	if opts.patternsDir != "" {
		cfg.Patterns.UserDir = opts.patternsDir
	}
}

// governorFlags maps config booleans onto the governor's mode bit-set.
func governorFlags(cfg *config.Config, havePrompter bool) governor.Flags {
	var f governor.Flags
	if cfg.Governor.Strict {
		f |= governor.FlagStrict
	}
	if cfg.Governor.AuditAll {
		f |= governor.FlagAuditAll
	}
	if cfg.Governor.Verbose {
		f |= governor.FlagVerbose
	}
	if cfg.Governor.Interactive && havePrompter {
		f |= governor.FlagInteractive
	}
	if cfg.Governor.Cache {
		f |= governor.FlagCacheEnabled
	}
	return f
}

// runStop handles the stop subcommand
func runStop() {
	running, pid := daemon.IsRunning()
	if !running {
		fmt.Println("Governor is not running")
		return
	}

	fmt.Printf("Stopping governor [PID %d]...\n", pid)
	if err := daemon.Stop(); err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
	fmt.Println("Governor stopped")
}

// runStatus handles the status subcommand
func runStatus() {
	running, pid := daemon.IsRunning()
	if !running {
		fmt.Println("Governor is not running")
		return
	}

	fmt.Printf("Governor is running [PID %d]\n", pid)

	client := newAPIClient()
	if healthy, _ := client.checkHealth(); healthy {
		fmt.Println("  Status: healthy")
	}
	fmt.Printf("  Logs: %s\n", daemon.LogFileDisplay())
}

// runLogs handles the logs subcommand
func runLogs(args []string) {
	logsFlags := flag.NewFlagSet("logs", flag.ExitOnError)
	lines := logsFlags.Int("n", 50, "Number of lines to show")
	follow := logsFlags.Bool("f", false, "Follow the log")
	_ = logsFlags.Parse(args)

	path := daemon.LogFile()
	data, err := os.ReadFile(path)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Cannot read log file %s: %v", path, err))
		os.Exit(1)
	}

	printTail(data, *lines)

	if *follow {
		followLog(path, int64(len(data)))
	}
}

// printTail writes the last n lines of data to stdout.
func printTail(data []byte, n int) {
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	for _, line := range all {
		fmt.Println(line)
	}
}

// followLog polls the log file for appended content until interrupted.
func followLog(path string, offset int64) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				f.Close()
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil || len(data) == 0 {
				continue
			}
			os.Stdout.Write(data)
			offset += int64(len(data))
		}
	}
}

// =============================================================================
// API client commands
// =============================================================================

// apiClient talks to the running daemon's HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient() *apiClient {
	port := 9474
	if p, err := daemon.ReadPort(); err == nil {
		port = p
	}
	return &apiClient{
		base:  fmt.Sprintf("http://127.0.0.1:%d", port),
		token: os.Getenv("GOVERNOR_API_TOKEN"),
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) checkHealth() (bool, error) {
	resp, err := c.http.Get(c.base + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// do sends a request and decodes the JSON response into out (may be nil).
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("governor not reachable at %s (is it running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func fail(err error) {
	tui.PrintError(err.Error())
	os.Exit(1)
}

// runEvaluate handles the evaluate subcommand: code from a file or stdin.
func runEvaluate(args []string) {
	evalFlags := flag.NewFlagSet("evaluate", flag.ExitOnError)
	name := evalFlags.String("name", "", "Submission name")
	desc := evalFlags.String("description", "", "Submission description")
	caps := evalFlags.String("caps", "", "Origin capabilities, comma-separated")
	pid := evalFlags.Uint("pid", 0, "Origin process ID")
	_ = evalFlags.Parse(args)

	var code []byte
	var err error
	switch evalFlags.NArg() {
	case 0:
		code, err = io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	case 1:
		if evalFlags.Arg(0) == "-" {
			code, err = io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
		} else {
			code, err = os.ReadFile(evalFlags.Arg(0))
			if *name == "" {
				*name = evalFlags.Arg(0)
			}
		}
	default:
		fail(fmt.Errorf("evaluate takes at most one file argument"))
	}
	if err != nil {
		fail(err)
	}

	var resp governor.EvalResponse
	err = newAPIClient().do(http.MethodPost, "/api/evaluate", map[string]any{
		"code":        string(code),
		"name":        *name,
		"description": *desc,
		"caps":        *caps,
		"pid":         uint32(*pid), //nolint:gosec // flag value, bounded by operator input
	}, &resp)
	if err != nil {
		fail(err)
	}

	fmt.Print(tui.RenderResponse(resp))
	if !resp.Verdict.Permits() {
		os.Exit(2)
	}
}

// runCheck handles the check subcommand: a single policy callout.
func runCheck(args []string) {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	policy := checkFlags.String("policy", "", "Policy tag (e.g. FS_DELETE)")
	path := checkFlags.String("path", "", "Target path")
	caps := checkFlags.String("caps", "", "Caller capabilities, comma-separated")
	pid := checkFlags.Uint("pid", 0, "Caller process ID")
	size := checkFlags.Uint64("size", 0, "Operation size in bytes")
	_ = checkFlags.Parse(args)

	if *policy == "" {
		fail(fmt.Errorf("--policy is required"))
	}

	var result governor.OperationResult
	err := newAPIClient().do(http.MethodPost, "/api/check", map[string]any{
		"policy": *policy,
		"path":   *path,
		"caps":   *caps,
		"pid":    uint32(*pid), //nolint:gosec // flag value, bounded by operator input
		"size":   *size,
	}, &result)
	if err != nil {
		fail(err)
	}

	fmt.Printf("  %s %s\n", tui.VerdictBadge(string(result.Verdict)), result.Reason)
	if result.Alternative != "" {
		fmt.Printf("  Alternative: %s\n", result.Alternative)
	}
	if result.Verdict == types.VerdictDeny {
		os.Exit(2)
	}
}

// runStats handles the stats subcommand
func runStats() {
	var stats governor.Stats
	if err := newAPIClient().do(http.MethodGet, "/api/stats", nil, &stats); err != nil {
		fail(err)
	}
	fmt.Print(tui.RenderStats(stats))
}

// runOverview handles the overview subcommand
func runOverview() {
	var overview governor.Overview
	if err := newAPIClient().do(http.MethodGet, "/api/overview", nil, &overview); err != nil {
		fail(err)
	}
	fmt.Print(tui.RenderOverview(overview))
}

// listResponse matches the history and audit endpoint envelope.
type listResponse struct {
	Total   int                   `json:"total"`
	Entries []governor.AuditEntry `json:"entries"`
}

// runHistory handles the history subcommand
func runHistory(args []string) {
	histFlags := flag.NewFlagSet("history", flag.ExitOnError)
	limit := histFlags.Int("limit", 50, "Maximum entries to show")
	_ = histFlags.Parse(args)

	var resp listResponse
	if err := newAPIClient().do(http.MethodGet, fmt.Sprintf("/api/history?limit=%d", *limit), nil, &resp); err != nil {
		fail(err)
	}
	fmt.Printf("Evaluations: %d\n", resp.Total)
	fmt.Print(tui.RenderAudit(resp.Entries))
}

// runAudit handles the audit subcommand
func runAudit(args []string) {
	auditFlags := flag.NewFlagSet("audit", flag.ExitOnError)
	limit := auditFlags.Int("limit", 50, "Maximum entries to show")
	_ = auditFlags.Parse(args)

	var resp listResponse
	if err := newAPIClient().do(http.MethodGet, fmt.Sprintf("/api/audit?limit=%d", *limit), nil, &resp); err != nil {
		fail(err)
	}
	fmt.Printf("Audit entries: %d\n", resp.Total)
	fmt.Print(tui.RenderAudit(resp.Entries))
}

// runRollback handles the rollback subcommand
func runRollback(args []string) {
	if len(args) != 1 {
		fail(fmt.Errorf("usage: governor rollback <history-index>"))
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		fail(fmt.Errorf("invalid history index %q", args[0]))
	}

	if err := newAPIClient().do(http.MethodPost, fmt.Sprintf("/api/history/%d/rollback", index), nil, nil); err != nil {
		fail(err)
	}
	tui.PrintSuccess(fmt.Sprintf("Rolled back evaluation %d", index))
}

// runVerify handles the verify subcommand
func runVerify(args []string) {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)
	fingerprint := verifyFlags.String("fingerprint", "", "Code fingerprint, 64 hex chars")
	signature := verifyFlags.String("signature", "", "Approval signature, 32 hex chars")
	_ = verifyFlags.Parse(args)

	if *fingerprint == "" || *signature == "" {
		fail(fmt.Errorf("--fingerprint and --signature are required"))
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	err := newAPIClient().do(http.MethodPost, "/api/verify", map[string]any{
		"fingerprint": *fingerprint,
		"signature":   *signature,
	}, &resp)
	if err != nil {
		fail(err)
	}

	if resp.Valid {
		tui.PrintSuccess("Signature is a genuine approval for this code")
	} else {
		tui.PrintWarning("Signature does NOT verify for this code")
		os.Exit(2)
	}
}

// runScope handles the scope subcommand group
func runScope(args []string) {
	if len(args) == 0 {
		fail(fmt.Errorf("usage: governor scope <list|add|remove|check>"))
	}

	switch args[0] {
	case "list":
		var resp struct {
			Total  int              `json:"total"`
			Scopes []governor.Scope `json:"scopes"`
		}
		if err := newAPIClient().do(http.MethodGet, "/api/scopes", nil, &resp); err != nil {
			fail(err)
		}
		fmt.Printf("Scopes: %d\n", resp.Total)
		fmt.Print(tui.RenderScopes(resp.Scopes))

	case "add":
		addFlags := flag.NewFlagSet("scope add", flag.ExitOnError)
		id := addFlags.String("id", "", "Scope identifier")
		caps := addFlags.String("caps", "", "Capabilities, comma-separated")
		glob := addFlags.String("glob", "", "Path glob the scope covers")
		maxBytes := addFlags.Uint64("max-bytes", 0, "Size bound (0=unbounded)")
		ttl := addFlags.Int("ttl", 0, "Lifetime in seconds (0=no expiry)")
		_ = addFlags.Parse(args[1:])

		err := newAPIClient().do(http.MethodPost, "/api/scopes", map[string]any{
			"id":          *id,
			"caps":        *caps,
			"path_glob":   *glob,
			"max_bytes":   *maxBytes,
			"ttl_seconds": *ttl,
		}, nil)
		if err != nil {
			fail(err)
		}
		tui.PrintSuccess(fmt.Sprintf("Scope %q added", *id))

	case "remove":
		if len(args) != 2 {
			fail(fmt.Errorf("usage: governor scope remove <id>"))
		}
		if err := newAPIClient().do(http.MethodDelete, "/api/scopes/"+args[1], nil, nil); err != nil {
			fail(err)
		}
		tui.PrintSuccess(fmt.Sprintf("Scope %q removed", args[1]))

	case "check":
		checkFlags := flag.NewFlagSet("scope check", flag.ExitOnError)
		capName := checkFlags.String("cap", "", "Capability to check")
		path := checkFlags.String("path", "", "Target path")
		size := checkFlags.Uint64("size", 0, "Operation size in bytes")
		_ = checkFlags.Parse(args[1:])

		var resp struct {
			Allowed bool `json:"allowed"`
		}
		err := newAPIClient().do(http.MethodPost, "/api/scopes/check", map[string]any{
			"cap":  *capName,
			"path": *path,
			"size": *size,
		}, &resp)
		if err != nil {
			fail(err)
		}
		if resp.Allowed {
			tui.PrintSuccess("Allowed")
		} else {
			tui.PrintWarning("Denied by scope table")
			os.Exit(2)
		}

	default:
		fail(fmt.Errorf("unknown scope command %q", args[0]))
	}
}

// runCache handles the cache subcommand group
func runCache(args []string) {
	sub := "stats"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "stats":
		var resp struct {
			Hits   uint64 `json:"hits"`
			Misses uint64 `json:"misses"`
			Used   int    `json:"used"`
		}
		if err := newAPIClient().do(http.MethodGet, "/api/cache", nil, &resp); err != nil {
			fail(err)
		}
		fmt.Printf("Cache: %d hits, %d misses, %d live entries\n", resp.Hits, resp.Misses, resp.Used)

	case "clear":
		if err := newAPIClient().do(http.MethodPost, "/api/cache/clear", nil, nil); err != nil {
			fail(err)
		}
		tui.PrintSuccess("Cache cleared")

	default:
		fail(fmt.Errorf("unknown cache command %q", sub))
	}
}

// runFlags handles the flags subcommand: no args shows the current set, an
// argument replaces it (comma-separated names, or "none").
func runFlags(args []string) {
	client := newAPIClient()

	if len(args) == 0 {
		var resp struct {
			Flags string `json:"flags"`
		}
		if err := client.do(http.MethodGet, "/api/flags", nil, &resp); err != nil {
			fail(err)
		}
		fmt.Printf("Flags: %s\n", resp.Flags)
		return
	}

	want := args[0]
	if want == "none" {
		want = ""
	}
	var resp struct {
		Flags string `json:"flags"`
	}
	if err := client.do(http.MethodPut, "/api/flags", map[string]any{"flags": want}, &resp); err != nil {
		fail(err)
	}
	tui.PrintSuccess(fmt.Sprintf("Flags set: %s", resp.Flags))
}

// runExport handles the export subcommand
func runExport(args []string) {
	exportFlags := flag.NewFlagSet("export", flag.ExitOnError)
	dir := exportFlags.String("dir", ".", "Destination directory")
	minutes := exportFlags.Int("minutes", 1440, "Window to export, in minutes")
	_ = exportFlags.Parse(args)

	var resp struct {
		Path string `json:"path"`
	}
	err := newAPIClient().do(http.MethodPost, "/api/telemetry/export", map[string]any{
		"dir":     *dir,
		"minutes": *minutes,
	}, &resp)
	if err != nil {
		fail(err)
	}
	tui.PrintSuccess(fmt.Sprintf("Exported audit mirror to %s", resp.Path))
}

// runCompletion handles the completion subcommand
func runCompletion(args []string) {
	compFlags := flag.NewFlagSet("completion", flag.ExitOnError)
	installFlag := compFlags.Bool("install", false, "Install shell completion")
	uninstallFlag := compFlags.Bool("uninstall", false, "Uninstall shell completion")
	_ = compFlags.Parse(args)

	switch {
	case *installFlag:
		if completion.IsInstalled() {
			fmt.Println("Shell completion is already installed")
			return
		}
		if err := completion.Install(); err != nil {
			fail(err)
		}
		tui.PrintSuccess("Shell completion installed (restart your shell)")
	case *uninstallFlag:
		if err := completion.Uninstall(); err != nil {
			fail(err)
		}
		tui.PrintSuccess("Shell completion uninstalled")
	default:
		if completion.IsInstalled() {
			fmt.Println("Shell completion: installed")
		} else {
			fmt.Println("Shell completion: not installed (run: governor completion --install)")
		}
	}
}

func printUsage() {
	fmt.Println("governor - PhantomOS policy governor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  governor <command> [flags]")
	fmt.Println()
	fmt.Println("Daemon:")
	fmt.Println("  start       Start the governor (use --foreground to stay attached)")
	fmt.Println("  stop        Stop the running governor")
	fmt.Println("  status      Show daemon status")
	fmt.Println("  logs        Show daemon logs (-f to follow)")
	fmt.Println()
	fmt.Println("Evaluation:")
	fmt.Println("  evaluate    Evaluate code from a file or stdin")
	fmt.Println("  check       Run a single policy callout")
	fmt.Println("  verify      Verify an approval signature")
	fmt.Println("  rollback    Invalidate a recorded approval")
	fmt.Println()
	fmt.Println("Inspection:")
	fmt.Println("  stats       Show governor counters")
	fmt.Println("  overview    Show health, alerts, and timeline")
	fmt.Println("  history     List evaluation history")
	fmt.Println("  audit       List the audit log")
	fmt.Println()
	fmt.Println("Control:")
	fmt.Println("  scope       Manage standing grants (list|add|remove|check)")
	fmt.Println("  cache       Inspect or clear the evaluation cache (stats|clear)")
	fmt.Println("  flags       Show or set governor mode flags")
	fmt.Println("  export      Export the audit mirror to a compressed file")
	fmt.Println()
	fmt.Println("  completion  Manage shell tab-completion")
	fmt.Println("  version     Show version")
	fmt.Println("  help        Show this help")
}
