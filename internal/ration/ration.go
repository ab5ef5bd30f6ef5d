// Package ration runs every configured ration through the formulation
// pipeline.
package ration

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/feedmix/internal/config"
	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
)

// Outcome is the result of one ration. Err holds a recoverable failure
// (an unreachable target or a failed solve); Result is nil in that case.
type Outcome struct {
	Name     string
	Request  formulation.Request
	Result   *formulation.Result
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the ration produced a formulation.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Result != nil
}

// Run formulates every active ration in conf.
func Run(ctx context.Context, logger *zap.Logger, conf *config.Configuration, catalog *ingredients.Catalog, solver formulation.Solver) ([]Outcome, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return RunRations(ctx, logger, conf.ActiveRations(), catalog, solver)
}

// RunRations formulates the given rations in parallel. Each ration is an
// independent pipeline; outcomes keep the input order. A non-recoverable
// error in any ration cancels the rest and is returned.
func RunRations(ctx context.Context, logger *zap.Logger, rations []config.Ration, catalog *ingredients.Catalog, solver formulation.Solver) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	formulator, err := formulation.NewFormulator(logger, solver)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(rations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, r := range rations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req, err := r.Request(catalog)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := formulator.Formulate(req)
			outcomes[i] = Outcome{
				Name:     r.Name,
				Request:  req,
				Result:   result,
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				if !formulation.IsRecoverable(err) {
					return fmt.Errorf("ration %q: %w", r.Name, err)
				}
				logger.Warn("ration could not be formulated",
					zap.String("op", "ration.RunRations"),
					zap.String("ration", r.Name),
					zap.Error(err),
				)
				return nil
			}

			logger.Info("ration formulated",
				zap.String("op", "ration.RunRations"),
				zap.String("ration", r.Name),
				zap.Float64("totalCost", result.TotalCost),
				zap.Duration("duration", outcomes[i].Duration),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
