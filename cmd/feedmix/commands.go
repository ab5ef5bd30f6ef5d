package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/iwvelando/feedmix/internal/config"
	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
	"github.com/iwvelando/feedmix/internal/ration"
	"github.com/iwvelando/feedmix/internal/server"
	"github.com/iwvelando/feedmix/internal/solver"
	"github.com/iwvelando/feedmix/pkg/constants"
	"github.com/iwvelando/feedmix/pkg/format"
	"github.com/iwvelando/feedmix/pkg/output"
	"github.com/iwvelando/feedmix/pkg/validation"
)

func formulateCmd() *cli.Command {
	return &cli.Command{
		Name:  "formulate",
		Usage: "Compute the least-cost blend for each active ration in a config file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   constants.DefaultConfigFile,
				Usage:   "path to configuration file",
			},
			&cli.StringFlag{
				Name: "output-format",
				Usage: fmt.Sprintf("type of output override (supported values: %s)",
					strings.Join(validation.OutputFormats(), ", ")),
			},
			&cli.StringFlag{
				Name:  "ration",
				Usage: "run only the named ration, even if it is inactive",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "also write the formulation to a .csv or .txt file",
			},
			&cli.StringFlag{
				Name: "solver",
				Usage: fmt.Sprintf("solver override (supported values: %s)",
					strings.Join(solver.Methods(), ", ")),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configLocation := cmd.String("config")
			conf, err := config.LoadConfiguration(configLocation)
			if err != nil {
				return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
			}

			logger, err := initializeLogger(conf.Logging, cmd.String("log-level"))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			return runFormulate(ctx, logger, cmd.Root().Writer, conf, formulateOptions{
				outputFormat: cmd.String("output-format"),
				ration:       cmd.String("ration"),
				export:       cmd.String("export"),
				solver:       cmd.String("solver"),
			})
		},
	}
}

type formulateOptions struct {
	outputFormat string
	ration       string
	export       string
	solver       string
}

func runFormulate(ctx context.Context, logger *zap.Logger, w io.Writer, conf *config.Configuration, opts formulateOptions) error {
	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runFormulate"),
		)
	}

	rations := conf.ActiveRations()
	if opts.ration != "" {
		r, ok := conf.FindRation(opts.ration)
		if !ok {
			return fmt.Errorf("ration %q not found in configuration", opts.ration)
		}
		for _, warning := range validation.ValidateSelection(r.Name, r.Ingredients) {
			logger.Warn("Configuration warning: "+warning,
				zap.String("op", "main.runFormulate"),
			)
		}
		rations = []config.Ration{r}
	}
	if len(rations) == 0 {
		return errors.New("no rations to formulate")
	}
	if opts.export != "" && len(rations) > 1 {
		return errors.New("--export needs --ration when several rations are active")
	}

	catalog, err := conf.LoadCatalog(logger)
	if err != nil {
		return fmt.Errorf("failed to load ingredient catalog: %w", err)
	}

	method := conf.Solver.Method
	if opts.solver != "" {
		method = opts.solver
	}
	if method == "" {
		method = constants.DefaultSolver
	}
	s, err := solver.New(method)
	if err != nil {
		return err
	}

	outcomes, err := ration.RunRations(ctx, logger, rations, catalog, s)
	if err != nil {
		return err
	}

	if err := output.Write(w, outputFormat, outcomes); err != nil {
		return err
	}

	if opts.export != "" && outcomes[0].Succeeded() {
		if err := output.WriteFile(opts.export, "", outcomes[0].Result); err != nil {
			return err
		}
		logger.Info("formulation exported",
			zap.String("op", "main.runFormulate"),
			zap.String("ration", outcomes[0].Name),
			zap.String("path", opts.export),
		)
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rations have no feasible formulation", failed, len(outcomes))
	}
	return nil
}

func ingredientsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ingredients",
		Usage: "List the ingredient catalog, or check a selection against nutrient targets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "catalog",
				Value: constants.DefaultCatalogFile,
				Usage: "path to the semicolon-delimited ingredient catalog",
			},
			&cli.StringSliceFlag{
				Name:    "select",
				Aliases: []string{"s"},
				Usage:   "ingredient names to check (comma separated or repeated)",
			},
			&cli.FloatFlag{
				Name:  "cp",
				Value: constants.DefaultCPMin,
				Usage: "minimum crude protein percentage to check the selection against",
			},
			&cli.FloatFlag{
				Name:  "tdn",
				Value: constants.DefaultTDNMin,
				Usage: "minimum total digestible nutrients percentage to check the selection against",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			catalog, err := ingredients.LoadCatalog(cmd.String("catalog"))
			if err != nil {
				return err
			}
			targets := formulation.NutrientTargets{
				CPMin:         cmd.Float("cp"),
				TDNMin:        cmd.Float("tdn"),
				TotalWeightKg: constants.DefaultTotalWeightKg,
			}
			return runIngredients(cmd.Root().Writer, catalog, cmd.StringSlice("select"), targets)
		},
	}
}

func runIngredients(w io.Writer, catalog *ingredients.Catalog, names []string, targets formulation.NutrientTargets) error {
	list := catalog.All()
	if len(names) > 0 {
		selected, err := catalog.Select(names)
		if err != nil {
			return err
		}
		list = selected
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tIngredient\tCP %\tTDN %\tPrice/kg")
	for i, ing := range list {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%s\n", i+1, ing.Name, ing.CP, ing.TDN, format.Currency(float64(ing.Price)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(names) == 0 {
		return nil
	}

	for _, warning := range validation.ValidateSelection("selection", names) {
		fmt.Fprintf(w, "\nWarning: %s\n", warning)
	}

	report, err := formulation.Check(list, targets)
	fmt.Fprintf(w, "\nMaximum CP: %g%% (%s)\nMaximum TDN: %g%% (%s)\n",
		report.MaxCP, report.MaxCPFrom, report.MaxTDN, report.MaxTDNFrom)
	if err != nil {
		var infeasible *formulation.InfeasibleTargetError
		if errors.As(err, &infeasible) {
			fmt.Fprintf(w, "Targets CP %g%% / TDN %g%% cannot be met: %v\n", targets.CPMin, targets.TDNMin, err)
			return nil
		}
		return err
	}
	fmt.Fprintf(w, "Targets CP %g%% / TDN %g%% are within reach of this selection\n", targets.CPMin, targets.TDNMin)
	return nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the formulation API and web form over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server-config",
				Value: constants.DefaultServerConfigFile,
				Usage: "path to server configuration file (defaults apply when missing)",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen address override",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := server.LoadConfig(cmd.String("server-config"))
			if err != nil {
				return err
			}
			if addr := cmd.String("address"); addr != "" {
				cfg.Address = addr
			}

			logger, err := initializeLogger(cfg.Logging, cmd.String("log-level"))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			catalog, err := ingredients.LoadCatalog(cfg.Catalog)
			if err != nil {
				return err
			}
			if _, err := solver.New(cfg.Solver); err != nil {
				return err
			}

			logger.Info("starting server",
				zap.String("op", "main.serve"),
				zap.String("version", version),
				zap.String("catalog", cfg.Catalog),
				zap.Int("ingredients", catalog.Len()),
				zap.String("solver", cfg.Solver),
			)

			return server.Serve(ctx, logger, cfg, server.NewHandler(logger, cfg, catalog, version))
		},
	}
}
