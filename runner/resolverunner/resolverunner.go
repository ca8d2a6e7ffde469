// Package resolverunner imports the Google Maps URLs given on the command
// line or in a file and writes one JSON line per URL.
package resolverunner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/postgres"
	"github.com/coffeed/coffeed-admin/resolver"
	"github.com/coffeed/coffeed-admin/runner"
	"github.com/coffeed/coffeed-admin/tlmt"
)

const concurrency = 4

type Importer interface {
	Import(ctx context.Context, rawURL string, opts importer.Options) (*models.ImportedShop, error)
}

// Result is one output line.
type Result struct {
	URL   string               `json:"url"`
	Shop  *models.ImportedShop `json:"shop,omitempty"`
	Error *models.APIError     `json:"error,omitempty"`
}

type resolveRunner struct {
	cfg      *runner.Config
	deps     *runner.Deps
	importer Importer
	logger   *zap.Logger
	out      io.Writer
	outfile  *os.File
}

func New(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeResolve {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	deps, err := runner.BuildDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ans := &resolveRunner{
		cfg:      cfg,
		deps:     deps,
		importer: deps.Importer,
		logger:   logger,
		out:      os.Stdout,
	}

	if cfg.ResultsFile != "" && cfg.ResultsFile != "stdout" {
		f, err := os.Create(cfg.ResultsFile)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}

		ans.outfile = f
		ans.out = f
	}

	return ans, nil
}

func (r *resolveRunner) Run(ctx context.Context) (err error) {
	urls := append([]string(nil), r.cfg.URLs...)

	if r.cfg.InputFile != "" {
		fromFile, err := readInput(r.cfg.InputFile)
		if err != nil {
			return err
		}

		urls = append(urls, fromFile...)
	}

	t0 := time.Now().UTC()

	defer func() {
		params := map[string]any{
			"url_count": len(urls),
			"duration":  time.Now().UTC().Sub(t0).String(),
		}

		if err != nil {
			params["error"] = err.Error()
		}

		_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("resolve_runner", params))
	}()

	failed, err := process(ctx, r.importer, urls, importer.Options{Persist: r.cfg.Persist}, r.out)
	if err != nil {
		return err
	}

	r.logger.Info("resolve finished", zap.Int("urls", len(urls)), zap.Int("failed", failed))

	return nil
}

func (r *resolveRunner) Close(context.Context) error {
	var err error

	if r.outfile != nil {
		err = r.outfile.Close()
	}

	if cerr := r.deps.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

// process imports every URL with bounded concurrency and writes a Result per
// URL to w. It returns the number of failed imports.
func process(ctx context.Context, im Importer, urls []string, opts importer.Options, w io.Writer) (int, error) {
	var (
		mu     sync.Mutex
		failed int
	)

	enc := json.NewEncoder(w)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, u := range urls {
		g.Go(func() error {
			res := Result{URL: u}

			shop, err := im.Import(gctx, u, opts)
			if err != nil {
				res.Error = toAPIError(err)
			} else {
				res.Shop = shop
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failed++
			}

			return enc.Encode(res)
		})
	}

	if err := g.Wait(); err != nil {
		return failed, fmt.Errorf("failed to write result: %w", err)
	}

	return failed, nil
}

func toAPIError(err error) *models.APIError {
	kind := resolver.KindName(err)

	switch {
	case errors.Is(err, importer.ErrInvalidURL):
		kind = "invalid_url"
	case errors.Is(err, postgres.ErrDuplicatePlace):
		kind = "duplicate_place"
	}

	return &models.APIError{Kind: kind, Message: err.Error()}
}

func readInput(path string) ([]string, error) {
	var in io.Reader

	if path == "stdin" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		in = f
	}

	return parseURLs(in)
}

// parseURLs returns the non empty lines of r, skipping # comments.
func parseURLs(r io.Reader) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		urls = append(urls, line)
	}

	return urls, scanner.Err()
}
