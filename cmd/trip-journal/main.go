package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/trip-journal/internal/geocode"
	"github.com/zombor/trip-journal/internal/imaging"
	"github.com/zombor/trip-journal/internal/journal"
	"github.com/zombor/trip-journal/internal/llm"
	"github.com/zombor/trip-journal/internal/news"
	"github.com/zombor/trip-journal/internal/ocr"
	"github.com/zombor/trip-journal/internal/scanning"
	"github.com/zombor/trip-journal/internal/weather"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("trip-journal")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "trip-journal.db", "Database file path")
		storagePath = fs.StringLong("storage", "./images", "Image storage directory path")
		envFile     = fs.StringLong("env-file", ".env", "Secrets file loaded into the environment if present")

		weatherKey = fs.StringLong("weather-key", "", "OpenWeatherMap API key (or set WEATHER_API_KEY env var)")
		ocrKey     = fs.StringLong("ocr-key", "", "OCR.space API key (or set OCR_API_KEY env var)")
		newsURL    = fs.StringLong("news-url", "", "News search endpoint URL (briefing degrades without it)")
		geocodeURL = fs.StringLong("geocode-url", geocode.DefaultBaseURL, "Nominatim base URL")

		llmProvider = fs.StringLong("llm", "openai", "LLM provider: 'openai' or 'gemini'")
		llmKey      = fs.StringLong("llm-key", "", "LLM API key (or set LLM_API_KEY env var)")
		llmBaseURL  = fs.StringLong("llm-url", llm.DefaultTogetherBaseURL, "OpenAI-compatible base URL")
		llmModel    = fs.StringLong("llm-model", "", "Model name (provider default if empty)")

		budgetKB = fs.IntLong("receipt-budget-kb", imaging.DefaultBudgetBytes/1024, "JPEG size budget for receipt images, in KB")

		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TRIP_JOURNAL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Load the secrets file if one exists. Flags and TRIP_JOURNAL_* env vars
	// were already read, so this only fills in the per-provider key vars.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to load secrets file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := journal.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := journal.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize weather provider
	weatherAPIKey := keyOr(*weatherKey, "WEATHER_API_KEY")
	if weatherAPIKey == "" {
		slog.Error("Weather API key is required. Set --weather-key flag or WEATHER_API_KEY environment variable")
		os.Exit(1)
	}
	weatherClient, err := weather.NewClient(weatherAPIKey, "", "kr")
	if err != nil {
		slog.Error("Failed to initialize weather client", "error", err)
		os.Exit(1)
	}

	// Initialize OCR client for receipt scanning
	ocrAPIKey := keyOr(*ocrKey, "OCR_API_KEY")
	if ocrAPIKey == "" {
		slog.Error("OCR API key is required. Set --ocr-key flag or OCR_API_KEY environment variable")
		os.Exit(1)
	}
	ocrClient, err := ocr.NewClient(ocrAPIKey, "", "kor", "2")
	if err != nil {
		slog.Error("Failed to initialize OCR client", "error", err)
		os.Exit(1)
	}

	// Initialize LLM provider based on type
	var model llm.Client
	llmAPIKey := keyOr(*llmKey, "LLM_API_KEY")
	switch *llmProvider {
	case "openai":
		if llmAPIKey == "" {
			slog.Error("LLM API key is required. Set --llm-key flag or LLM_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI-compatible client...", "url", *llmBaseURL, "model", *llmModel)
		model, err = llm.NewOpenAI(llmAPIKey, *llmBaseURL, *llmModel)
		if err != nil {
			slog.Error("Failed to initialize LLM client", "error", err)
			os.Exit(1)
		}
	case "gemini":
		if llmAPIKey == "" {
			llmAPIKey = os.Getenv("GEMINI_API_KEY")
		}
		if llmAPIKey == "" {
			slog.Error("Gemini API key is required. Set --llm-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini client...", "model", *llmModel)
		model, err = llm.NewGemini(llmAPIKey, *llmModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid LLM provider", "provider", *llmProvider, "valid", "openai or gemini")
		os.Exit(1)
	}
	defer model.Close()

	// Initialize news search. The briefing degrades to its no-news sentinel
	// when no endpoint is configured, so this one is optional.
	var searcher journal.NewsSearcher
	if *newsURL != "" {
		searcher, err = news.NewClient(*newsURL)
		if err != nil {
			slog.Error("Failed to initialize news search", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("No news search endpoint configured, briefings will have no news context")
		searcher = &noSearch{}
	}

	// Initialize reverse geocoder. Nominatim requires an identifying
	// User-Agent.
	geocoder, err := geocode.NewClient(*geocodeURL, "trip-journal/"+version)
	if err != nil {
		slog.Error("Failed to initialize geocoder", "error", err)
		os.Exit(1)
	}

	extractor := scanning.NewOCRExtractor(ocrClient, model, *budgetKB*1024)

	// Initialize service
	journalService := journal.NewService(db, store, extractor, weatherClient, searcher, geocoder, model)

	// Initialize server
	basicAuth := journal.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := journal.NewServer(journalService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// keyOr prefers the flag value, falling back to an unprefixed env var so
// existing provider-named variables keep working.
func keyOr(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envName)
}

// noSearch is the stand-in searcher when no endpoint is configured. It fails
// every search, which the briefing degrades to its sentinel.
type noSearch struct{}

func (n *noSearch) Search(_ context.Context, _ string, _ int) ([]news.Result, error) {
	return nil, fmt.Errorf("news search not configured")
}
