package application

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-npp/infrastructure/phases"
	"github.com/ahrav/go-npp/internal/domain"
	"github.com/ahrav/go-npp/internal/ports"
)

// PhaseSelection names which phases of the pipeline to run.
type PhaseSelection string

// The phase selectors. PhaseAll runs distribution, projection and
// combination in order; the others run a single phase against whatever
// upstream outputs already exist.
const (
	PhaseAll        PhaseSelection = "all"
	PhaseDistribute PhaseSelection = "distribute"
	PhaseProject    PhaseSelection = "project"
	PhaseCombine    PhaseSelection = "combine"
)

// ParsePhaseSelection converts a phase flag value into a PhaseSelection.
func ParsePhaseSelection(s string) (PhaseSelection, error) {
	switch PhaseSelection(s) {
	case PhaseAll, PhaseDistribute, PhaseProject, PhaseCombine:
		return PhaseSelection(s), nil
	default:
		return "", fmt.Errorf("%w: %q (want all, distribute, project or combine)", ErrUnknownPhase, s)
	}
}

// Runner executes scenarios from a loaded configuration. Scenarios are
// independent of one another; phases within a scenario are strictly
// ordered, each consuming the previous one's output file.
type Runner struct {
	config   *Config
	logger   *zap.Logger
	metrics  ports.MetricsCollector
	parallel bool
}

// NewRunner creates a runner over a loaded configuration. When parallel is
// set, requested scenarios run concurrently; their outputs never overlap
// so the only shared state is the metrics collector, which is safe.
func NewRunner(config *Config, logger *zap.Logger, metrics ports.MetricsCollector, parallel bool) (*Runner, error) {
	if config == nil || len(config.Scenarios) == 0 {
		return nil, ErrNoScenarios
	}
	return &Runner{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		parallel: parallel,
	}, nil
}

// Run executes the selected phases of the named scenarios; an empty name
// list means every scenario in the configuration. The first scenario
// failure cancels the rest.
func (r *Runner) Run(ctx context.Context, names []string, selection PhaseSelection) error {
	if len(names) == 0 {
		for name := range r.config.Scenarios {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := r.config.Scenarios[name]; !ok {
			return fmt.Errorf("%w: %q; closest match is %q",
				ErrUnknownScenario, name, r.closestScenario(name))
		}
	}

	if r.parallel && len(names) > 1 {
		g, ctx := errgroup.WithContext(ctx)
		for _, name := range names {
			name := name
			g.Go(func() error { return r.runScenario(ctx, name, selection) })
		}
		return g.Wait()
	}

	for _, name := range names {
		if err := r.runScenario(ctx, name, selection); err != nil {
			return err
		}
	}
	return nil
}

// runScenario builds and executes one scenario's phases in pipeline order.
func (r *Runner) runScenario(ctx context.Context, name string, selection PhaseSelection) error {
	sc := r.config.Scenarios[name]
	logger := r.logger.With(zap.String("scenario", name))
	logger.Info("scenario starting",
		zap.String("jurisdiction", sc.Jurisdiction),
		zap.String("year", sc.Year),
		zap.String("phases", string(selection)))

	pipeline, err := r.buildPhases(name, &sc, selection)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", name, err)
	}

	for _, phase := range pipeline {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := phase.Execute(ctx); err != nil {
			return fmt.Errorf("scenario %q: %w", name, err)
		}
	}
	logger.Info("scenario complete")
	return nil
}

// buildPhases constructs the selected phases for a scenario. Construction
// validates each phase's configuration, so a scenario missing a
// correspondence file fails before any phase runs.
func (r *Runner) buildPhases(name string, sc *ScenarioConfig, selection PhaseSelection) ([]ports.Phase, error) {
	jurisdiction, err := domain.ParseJurisdiction(sc.Jurisdiction)
	if err != nil {
		return nil, err
	}
	groups, err := domain.NewGroupSet(sc.Groups)
	if err != nil {
		return nil, err
	}

	var pipeline []ports.Phase

	if selection == PhaseAll || selection == PhaseDistribute {
		dp, err := phases.NewDistributionPhase(name, phases.DistributionConfig{
			Jurisdiction:      jurisdiction,
			PrefsPath:         sc.PrefsPath,
			PollingPlacesPath: sc.PollingPlacesPath,
			OutputPath:        sc.BoothsPath(),
		}, groups, r.logger, r.metrics)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, dp)
	}

	if selection == PhaseAll || selection == PhaseProject {
		if sc.SA1sBreakdownPath == "" {
			return nil, fmt.Errorf("%w: sa1s_breakdown_path is required to project", ErrMissingCorrespondence)
		}
		pp, err := phases.NewProjectionPhase(name, phases.ProjectionConfig{
			Jurisdiction:     jurisdiction,
			Year:             sc.Year,
			BoothsPath:       sc.BoothsPath(),
			SA1BreakdownPath: sc.SA1sBreakdownPath,
			OutputPath:       sc.SA1PrefsPath(),
		}, groups, r.logger, r.metrics)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, pp)
	}

	if selection == PhaseAll || selection == PhaseCombine {
		if sc.SA1sDistrictsPath == "" {
			return nil, fmt.Errorf("%w: sa1s_districts_path is required to combine", ErrMissingCorrespondence)
		}
		cp, err := phases.NewCombinationPhase(name, phases.CombinationConfig{
			SA1PrefsPath:     sc.SA1PrefsPath(),
			SA1DistrictsPath: sc.SA1sDistrictsPath,
			OutputPath:       sc.DistrictsPath(),
			WriteJSON:        sc.WriteJSON,
		}, groups, r.logger, r.metrics)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, cp)
	}
	return pipeline, nil
}

// closestScenario returns the configured scenario name nearest to target
// by edit distance, for "did you mean" diagnostics.
func (r *Runner) closestScenario(target string) string {
	best, bestDist := "", -1
	for name := range r.config.Scenarios {
		d := levenshtein.ComputeDistance(target, name)
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// ListScenarios writes a tab-aligned summary of the configured scenarios.
func ListScenarios(w io.Writer, config *Config) error {
	names := make([]string, 0, len(config.Scenarios))
	for name := range config.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tJURISDICTION\tYEAR\tGROUPS\tOUTPUT")
	for _, name := range names {
		sc := config.Scenarios[name]
		groups := make([]string, 0, len(sc.Groups))
		for g := range sc.Groups {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n",
			name, sc.Jurisdiction, sc.Year, groups, sc.OutputDir)
	}
	return tw.Flush()
}
