package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/coffeed/coffeed-admin/tlmt"
	"github.com/coffeed/coffeed-admin/tlmt/gonoop"
	"github.com/coffeed/coffeed-admin/tlmt/goposthog"
)

const (
	RunModeResolve = iota + 1
	RunModeWeb
	RunModeWorker
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	RunMode      int
	InputFile    string
	ResultsFile  string
	URLs         []string
	Addr         string
	Dsn          string
	GoogleAPIKey string
	GeminiAPIKey string
	Language     string
	S3Bucket     string
	S3PublicURL  string
	S3Endpoint   string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	Persist      bool
	Debug        bool
}

// ParseConfig parses command line flags, falling back to environment
// variables for secrets and connection strings.
func ParseConfig(args []string) (*Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet("coffeed-admin", flag.ContinueOnError)

	var mode string

	fs.StringVar(&mode, "mode", "", "run mode: resolve, web or worker [default: web, or resolve when URLs are given]")
	fs.StringVar(&cfg.InputFile, "input", "", "path to a file with Google Maps URLs (one per line) [resolve mode]")
	fs.StringVar(&cfg.ResultsFile, "results", "stdout", "path to the results file (JSON lines) [default: stdout]")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on for the web server")
	fs.StringVar(&cfg.Dsn, "dsn", "", "postgres connection string [env: DATABASE_URL]")
	fs.StringVar(&cfg.GoogleAPIKey, "google-api-key", "", "Google Places API key [env: GOOGLE_PLACES_API_KEY]")
	fs.StringVar(&cfg.GeminiAPIKey, "gemini-api-key", "", "Gemini API key for descriptions [env: GEMINI_API_KEY]")
	fs.StringVar(&cfg.Language, "lang", "es", "language of place details")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", "S3 bucket for shop photos [env: S3_BUCKET]")
	fs.StringVar(&cfg.S3PublicURL, "s3-public-url", "", "public base URL of the photo bucket")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", "", "S3 compatible endpoint")
	fs.StringVar(&cfg.AwsAccessKey, "aws-access-key", "", "AWS access key")
	fs.StringVar(&cfg.AwsSecretKey, "aws-secret-key", "", "AWS secret key")
	fs.StringVar(&cfg.AwsRegion, "aws-region", "", "AWS region")
	fs.BoolVar(&cfg.Persist, "persist", false, "store imported shops in the database [resolve mode]")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.URLs = fs.Args()

	setFromEnv(&cfg.Dsn, "DATABASE_URL")
	setFromEnv(&cfg.GoogleAPIKey, "GOOGLE_PLACES_API_KEY")
	setFromEnv(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setFromEnv(&cfg.S3Bucket, "S3_BUCKET")
	setFromEnv(&cfg.AwsAccessKey, "MY_AWS_ACCESS_KEY")
	setFromEnv(&cfg.AwsSecretKey, "MY_AWS_SECRET_KEY")
	setFromEnv(&cfg.AwsRegion, "MY_AWS_REGION")

	switch strings.ToLower(mode) {
	case "resolve":
		cfg.RunMode = RunModeResolve
	case "web":
		cfg.RunMode = RunModeWeb
	case "worker":
		cfg.RunMode = RunModeWorker
	case "":
		cfg.RunMode = RunModeWeb
		if cfg.InputFile != "" || len(cfg.URLs) > 0 {
			cfg.RunMode = RunModeResolve
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunMode, mode)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var err error

	if c.GoogleAPIKey == "" {
		err = multierr.Append(err, errors.New("a Google Places API key is required (-google-api-key or GOOGLE_PLACES_API_KEY)"))
	}

	if c.Persist && c.Dsn == "" {
		err = multierr.Append(err, errors.New("-persist requires a database (-dsn or DATABASE_URL)"))
	}

	if c.RunMode == RunModeResolve && c.InputFile == "" && len(c.URLs) == 0 {
		err = multierr.Append(err, errors.New("resolve mode needs -input or URLs as arguments"))
	}

	if c.S3Bucket != "" && c.AwsRegion == "" {
		err = multierr.Append(err, errors.New("-s3-bucket requires -aws-region"))
	}

	return err
}

func setFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// NewLogger returns a JSON production logger, or a development logger with debug.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry returns the process wide telemetry sink. It is a no-op unless
// POSTHOG_API_KEY is set and DISABLE_TELEMETRY is not.
func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		apiKey := os.Getenv("POSTHOG_API_KEY")

		if os.Getenv("DISABLE_TELEMETRY") == "1" || apiKey == "" {
			telemetry = gonoop.New()

			return
		}

		endpoint := os.Getenv("POSTHOG_HOST")
		if endpoint == "" {
			endpoint = "https://eu.i.posthog.com"
		}

		val, err := goposthog.New(apiKey, endpoint)
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(int(os.Stderr.Fd()))
		if err != nil {
			width = 80
		}
	}

	width = max(width, 20)
	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		paddingRight := max(contentWidth-runewidth.StringWidth(line), 0)

		fmt.Fprintf(&builder, "║ %s%s ║\n", line, strings.Repeat(" ", paddingRight))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

func Banner(cfg *Config) {
	messages := []string{
		"☕ coffeed admin: Google Maps place import",
		"mode: " + modeName(cfg.RunMode),
	}

	if cfg.Debug {
		messages = append(messages, "🐞 debug logging enabled")
	}

	fmt.Fprintln(os.Stderr, banner(messages, 0))
}

func modeName(mode int) string {
	switch mode {
	case RunModeResolve:
		return "resolve"
	case RunModeWeb:
		return "web"
	case RunModeWorker:
		return "worker"
	default:
		return "unknown"
	}
}
