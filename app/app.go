package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"trend-signals/acquisition"
	"trend-signals/analysis"
	"trend-signals/api"
	"trend-signals/cache"
	"trend-signals/config"
	"trend-signals/database"
	"trend-signals/export"
	"trend-signals/llm"
	"trend-signals/metrics"
	"trend-signals/realtime"
	"trend-signals/report"
	"trend-signals/trends"
)

// ErrRunInProgress is returned when a run is already acquiring, here or in another process
var ErrRunInProgress = errors.New("a run is already in progress")

// App represents the main application
type App struct {
	config   *config.Config
	engine   *acquisition.Engine
	keywords []string
	pairs    []analysis.Pair
	options  analysis.Options
	out      io.Writer

	db       *database.Database
	repo     *database.RunRepository
	redis    *cache.RedisClient
	narrator *llm.Narrator
	broker   *realtime.Broker
	metrics  *metrics.Recorder
	registry *prometheus.Registry

	mu      sync.Mutex
	running bool
	latest  *report.Summary
	result  *analysis.Result
}

// New creates a new application instance around provider
func New(cfg *config.Config, provider trends.Provider, opts ...acquisition.Option) (*App, error) {
	window, err := trends.ParseWindow(cfg.Trends.WindowStart, cfg.Trends.WindowEnd)
	if err != nil {
		return nil, err
	}
	if len(cfg.Trends.Keywords) == 0 {
		return nil, fmt.Errorf("no keywords configured")
	}

	pairs, err := buildPairs(cfg.Trends.Pairs)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	broker := realtime.NewBroker()

	acqCfg := acquisition.Config{
		Window:          window,
		Geo:             cfg.Trends.Geo,
		Language:        cfg.Trends.Language,
		TZOffset:        cfg.Trends.TZOffset,
		MaxAttempts:     cfg.Trends.MaxAttempts,
		SuccessCooldown: cfg.Trends.SuccessCooldown,
		FailureCooldown: cfg.Trends.FailureCooldown,
		RequestTimeout:  cfg.Trends.RequestTimeout,
	}
	opts = append([]acquisition.Option{
		acquisition.WithObserver(recorder),
		acquisition.WithObserver(broker),
	}, opts...)

	engine, err := acquisition.New(provider, acqCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid acquisition config: %w", err)
	}

	return &App{
		config:   cfg,
		engine:   engine,
		keywords: cfg.Trends.Keywords,
		pairs:    pairs,
		options: analysis.Options{
			SmoothingWindow: cfg.Trends.SmoothingWindow,
			DropPartial:     cfg.Trends.DropPartial,
		},
		out:      os.Stdout,
		broker:   broker,
		metrics:  recorder,
		registry: registry,
	}, nil
}

// SetOutput redirects the console report
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// buildPairs turns the configured pair list into analysis pairs, defaulting to the study pairs.
func buildPairs(raw string) ([]analysis.Pair, error) {
	specs, err := config.ParsePairs(raw)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return analysis.DefaultPairs, nil
	}
	pairs := make([]analysis.Pair, len(specs))
	for i, s := range specs {
		pairs[i] = analysis.Pair{A: s.A, B: s.B, Title: s.Title}
	}
	return pairs, nil
}

// Connect opens the optional infrastructure: PostgreSQL, Redis and the LLM narrator.
// Each one is skipped when not configured; only a configured database that fails is fatal.
func (a *App) Connect() error {
	if a.config.DatabaseEnabled {
		fmt.Println("🗄️  Connecting to database...")
		port, err := strconv.Atoi(a.config.DatabasePort)
		if err != nil {
			return fmt.Errorf("invalid database port: %w", err)
		}
		db, err := database.Connect(a.config.DatabaseHost, port, a.config.DatabaseName,
			a.config.DatabaseUser, a.config.DatabasePassword)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		a.db = db
		a.repo = database.NewRunRepository(db)
		if err := a.repo.InitSchema(); err != nil {
			return fmt.Errorf("schema initialization failed: %w", err)
		}
	}

	if a.config.RedisHost != "" {
		fmt.Println("🧠 Connecting to Redis...")
		a.redis = cache.NewRedisClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
		if a.redis == nil {
			fmt.Println("⚠️  Redis connection failed. Run lock and publishing disabled.")
		}
	}

	if a.config.LLM.Enabled {
		a.narrator = llm.NewNarrator(a.config.LLM.Endpoint, a.config.LLM.APIKey, a.config.LLM.Model)
		log.Printf("✅ LLM commentary ENABLED (Model: %s)", a.config.LLM.Model)
	}

	return nil
}

// Close releases the infrastructure opened by Connect
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
	}
}

// RunOnce acquires every keyword, analyzes the signals and reports the result.
// Insufficient data is returned as an error wrapping analysis.ErrInsufficientData
// together with a summary whose status says so.
func (a *App) RunOnce(ctx context.Context) (*report.Summary, error) {
	if !a.begin() {
		return nil, ErrRunInProgress
	}
	defer a.end()
	return a.run(ctx)
}

// run executes one pass. The caller owns the running flag.
func (a *App) run(ctx context.Context) (*report.Summary, error) {
	runID := uuid.New()
	if a.redis != nil {
		ttl := a.engine.Config().WorstCaseDuration(len(a.keywords)) + 10*time.Minute
		if err := a.redis.AcquireLock(ctx, runID.String(), ttl); err != nil {
			if errors.Is(err, cache.ErrLocked) {
				return nil, ErrRunInProgress
			}
			log.Printf("⚠️  Could not take run lock, continuing without it: %v", err)
		} else {
			defer func() {
				if err := a.redis.ReleaseLock(context.Background(), runID.String()); err != nil {
					log.Printf("⚠️  Failed to release run lock: %v", err)
				}
			}()
		}
	}

	cfg := a.engine.Config()
	summary := &report.Summary{
		RunID:     runID.String(),
		Status:    database.RunRunning,
		StartedAt: time.Now().UTC(),
		Window:    cfg.Window.String(),
		Geo:       cfg.Geo,
	}
	run := &database.AnalysisRun{
		ID:        runID,
		StartedAt: summary.StartedAt,
		Keywords:  a.keywords,
		Window:    summary.Window,
		Geo:       summary.Geo,
		Status:    database.RunRunning,
	}
	if a.repo != nil {
		if err := a.repo.CreateRun(run); err != nil {
			log.Printf("⚠️  Failed to store run: %v", err)
		}
	}
	a.broker.Broadcast("run_started", summary)
	log.Printf("🔎 Run %s started for %d keywords (worst case %v of cooldowns)",
		runID, len(a.keywords), cfg.WorstCaseDuration(len(a.keywords)))

	collection, acqReport := a.engine.FetchWithReport(ctx, a.keywords)
	summary.Keywords = acqReport.Keywords
	run.Recorded = collection.Len()
	if a.repo != nil {
		if err := a.repo.SaveAcquisition(runID, acqReport); err != nil {
			log.Printf("⚠️  Failed to store acquisition report: %v", err)
		}
	}

	result, err := analysis.Analyze(collection, a.pairs, a.options)
	switch {
	case errors.Is(err, analysis.ErrInsufficientData):
		summary.Status = database.RunInsufficientData
		summary.Message = err.Error()
		log.Printf("⚠️  Nothing to analyze: %v", err)
		report.PrintInsufficient(a.out, err)
	case err != nil:
		summary.Status = database.RunFailed
		summary.Message = err.Error()
		log.Printf("❌ Analysis failed: %v", err)
	default:
		summary.Status = database.RunCompleted
		summary.Apply(result)
		run.Rows = summary.Rows
		report.Print(a.out, result)
		a.persist(ctx, runID, result, summary)
	}

	summary.FinishedAt = time.Now().UTC()
	a.finish(ctx, run, summary, result)
	return summary, err
}

// persist writes the successful result to the configured sinks. Failures are logged only.
func (a *App) persist(ctx context.Context, runID uuid.UUID, result *analysis.Result, summary *report.Summary) {
	if a.config.ExportDir != "" {
		paths, err := export.WriteFiles(a.config.ExportDir, result)
		if err != nil {
			log.Printf("⚠️  CSV export failed: %v", err)
		} else {
			log.Printf("💾 Data saved to %v", paths)
		}
	}

	if a.narrator != nil && len(result.Verdicts) > 0 {
		text, err := a.narrator.Summarize(ctx, result.Verdicts)
		if err != nil {
			log.Printf("⚠️  LLM commentary failed: %v", err)
		} else {
			summary.Commentary = text
			fmt.Fprintf(a.out, "\n%s\n", text)
		}
	}

	if a.repo != nil {
		if err := a.repo.SaveResult(runID, result); err != nil {
			log.Printf("⚠️  Failed to store result: %v", err)
		}
	}
}

func (a *App) finish(ctx context.Context, run *database.AnalysisRun, summary *report.Summary, result *analysis.Result) {
	if a.repo != nil {
		if err := a.repo.FinishRun(run, summary.Status, summary.Message); err != nil {
			log.Printf("⚠️  Failed to finish run: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Publish(ctx, cache.RunsChannel, summary); err != nil {
			log.Printf("⚠️  Failed to publish run summary: %v", err)
		}
		if err := a.redis.Set(ctx, cache.LatestRunKey, summary, cache.LatestRunTTL); err != nil {
			log.Printf("⚠️  Failed to store run summary: %v", err)
		}
	}

	a.metrics.ObserveRun(summary.Status, summary.FinishedAt.Sub(summary.StartedAt))
	a.broker.Broadcast("run_finished", summary)

	a.mu.Lock()
	a.latest = summary
	if result != nil {
		a.result = result
	}
	a.mu.Unlock()

	log.Printf("✅ Run %s finished: %s", summary.RunID, summary.Status)
}

func (a *App) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	return true
}

func (a *App) end() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// Latest implements api.RunSource
func (a *App) Latest() (*report.Summary, *analysis.Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		return nil, nil, false
	}
	return a.latest, a.result, true
}

// StoredLatest implements api.RunSource
func (a *App) StoredLatest() (*api.StoredRun, error) {
	if a.repo == nil {
		return nil, api.ErrStorageDisabled
	}
	run, err := a.repo.LatestRun()
	if err != nil {
		return nil, err
	}
	correlations, err := a.repo.CorrelationsForRun(run.ID)
	if err != nil {
		return nil, err
	}
	attempts, err := a.repo.AttemptsForRun(run.ID)
	if err != nil {
		return nil, err
	}
	return &api.StoredRun{Run: *run, Attempts: attempts, Correlations: correlations}, nil
}

// Trigger implements api.RunSource by starting a run in the background.
// It returns false when a run is already in progress.
func (a *App) Trigger(ctx context.Context) bool {
	if !a.begin() {
		return false
	}
	go func() {
		defer a.end()
		if _, err := a.run(ctx); err != nil && !errors.Is(err, analysis.ErrInsufficientData) {
			log.Printf("⚠️  Triggered run failed: %v", err)
		}
	}()
	return true
}

// isRunning reports whether a run currently owns the running flag
func (a *App) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
