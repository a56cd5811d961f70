package phases

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-npp/infrastructure/csvio"
	"github.com/ahrav/go-npp/internal/domain"
	"github.com/ahrav/go-npp/internal/ports"
)

var _ ports.Phase = (*ProjectionPhase)(nil)

// Column indices of the booth → SA1 correspondence file.
const (
	sa1ColYear     = 0
	sa1ColState    = 1
	sa1ColDivision = 2
	sa1ColID       = 3
	sa1ColBooth    = 5
	sa1ColVotes    = 6
)

// ProjectionConfig names the inputs and output of the projection phase.
type ProjectionConfig struct {
	// Jurisdiction filters the correspondence file, which is national.
	Jurisdiction domain.Jurisdiction `validate:"required"`

	// Year is the election year the correspondence file must match, e.g.
	// "2022". A mismatch is fatal: correspondences shift between elections
	// and projecting across years silently corrupts the result.
	Year string `validate:"required"`

	// BoothsPath is the booth-level NPP CSV from the distribution phase.
	BoothsPath string `validate:"required"`

	// SA1BreakdownPath is the "this many people from this SA1 voted at this
	// booth" correspondence CSV.
	SA1BreakdownPath string `validate:"required"`

	// OutputPath is where the SA1-level NPP CSV is written.
	OutputPath string `validate:"required"`
}

// ProjectionPhase distributes each booth's tally across the SA1s whose
// voters attended it, in proportion to attendance. It is effectively the
// sparse matrix product [sa1s; booths] × [booths; orderings], with both
// matrices held as maps since almost every (SA1, booth) pair is zero.
//
// House attendance figures are used to split Senate tallies; the scaling
// washes out because each booth's contributions are normalised by its own
// attendance total.
type ProjectionPhase struct {
	name    string
	config  ProjectionConfig
	groups  *domain.GroupSet
	logger  *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewProjectionPhase builds a projection phase for one scenario.
func NewProjectionPhase(
	name string,
	config ProjectionConfig,
	groups *domain.GroupSet,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*ProjectionPhase, error) {
	if name == "" {
		return nil, ErrEmptyPhaseName
	}
	if groups == nil {
		return nil, ErrNilGroupSet
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &ProjectionPhase{
		name:    name,
		config:  config,
		groups:  groups,
		logger:  logger.Named("project"),
		metrics: metrics,
		tracer:  otel.Tracer("npp-projection"),
	}, nil
}

// Name returns the phase's identifier.
func (pp *ProjectionPhase) Name() string { return pp.name }

// Execute runs the projection: loads the booth tallies, streams the
// correspondence file, accumulates weighted contributions per SA1, and
// writes the SA1-level CSV sorted by SA1 ID.
func (pp *ProjectionPhase) Execute(ctx context.Context) (err error) {
	ctx, span := pp.tracer.Start(ctx, "ProjectionPhase.Execute",
		trace.WithAttributes(
			attribute.String("phase", "project"),
			attribute.String("scenario", pp.name),
			attribute.String("jurisdiction", pp.config.Jurisdiction.String()),
			attribute.String("year", pp.config.Year),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()
	start := time.Now()

	pp.logger.Info("projecting booth results onto SA1s",
		zap.String("booths", pp.config.BoothsPath),
		zap.String("correspondence", pp.config.SA1BreakdownPath))

	booths, err := pp.loadBoothTallies()
	if err != nil {
		return err
	}

	sa1s, err := pp.project(ctx, booths)
	if err != nil {
		return err
	}

	rows, err := pp.writeOutput(sa1s)
	if err != nil {
		return err
	}

	labels := map[string]string{"scenario": pp.name, "phase": "project"}
	pp.metrics.RecordCounter("npp_output_rows_total", float64(rows), labels)
	pp.metrics.RecordLatency("project", time.Since(start), labels)
	pp.logger.Info("projection complete", zap.Int("sa1s", rows))
	return nil
}

// loadBoothTallies reads the distribution phase's output into the
// [booths; orderings] matrix, keyed by "Division_Booth". Booth IDs have
// been inconsistent across published files and latitude/longitude belong
// to the booth rather than the SA1, so only the name pair is used.
func (pp *ProjectionPhase) loadBoothTallies() (map[string][]float64, error) {
	f, err := csvio.Open(pp.config.BoothsPath)
	if err != nil {
		return nil, fmt.Errorf("could not open booth tallies: %w", err)
	}
	defer f.Close()

	rdr := csvio.NewReader(f)
	if _, err := rdr.Read(); err != nil {
		return nil, fmt.Errorf("could not read booth tallies header in %s: %w", pp.config.BoothsPath, err)
	}

	// Tally vector plus the trailing total column.
	width := pp.groups.CountOrderings() + 1
	booths := make(map[string][]float64)
	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", pp.config.BoothsPath, err)
		}
		if len(record) < len(nppFieldNames) {
			return nil, fmt.Errorf("%w: booth tally row has %d columns",
				domain.ErrMalformedRow, len(record))
		}

		key := record[1] + "_" + record[2]
		votes := make([]float64, 0, width)
		for _, cell := range record[len(nppFieldNames):] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = 0
			}
			votes = append(votes, v)
		}
		for len(votes) < width {
			votes = append(votes, 0)
		}
		booths[key] = votes
	}
	pp.logger.Debug("loaded booth tallies", zap.Int("booths", len(booths)))
	return booths, nil
}

// project streams the correspondence file and accumulates each booth's
// contribution to each SA1, weighted by the SA1's share of the booth's
// attendance.
func (pp *ProjectionPhase) project(
	ctx context.Context,
	booths map[string][]float64,
) (map[string][]float64, error) {
	f, err := csvio.Open(pp.config.SA1BreakdownPath)
	if err != nil {
		return nil, fmt.Errorf("could not open SA1 correspondence: %w", err)
	}
	defer f.Close()

	rdr := csvio.NewReader(f)
	if _, err := rdr.Read(); err != nil {
		return nil, fmt.Errorf("could not read correspondence header in %s: %w", pp.config.SA1BreakdownPath, err)
	}

	width := pp.groups.CountOrderings() + 1
	sa1s := make(map[string][]float64)
	rows := 0
	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", pp.config.SA1BreakdownPath, err)
		}
		if len(record) <= sa1ColVotes {
			return nil, fmt.Errorf("%w: correspondence row has %d columns",
				domain.ErrMalformedRow, len(record))
		}

		// The file is national; other jurisdictions are fine to skip. A
		// year mismatch on a row we do want is not: the whole file is for
		// the wrong election.
		if record[sa1ColState] != pp.config.Jurisdiction.String() {
			continue
		}
		if record[sa1ColYear] != pp.config.Year {
			return nil, fmt.Errorf("%w: %s row has year %q, scenario expects %q",
				domain.ErrYearMismatch, pp.config.SA1BreakdownPath,
				record[sa1ColYear], pp.config.Year)
		}

		attendance, err := strconv.ParseFloat(record[sa1ColVotes], 64)
		if err != nil {
			attendance = 0
		}

		key := record[sa1ColDivision] + "_" + record[sa1ColBooth]
		boothVotes, ok := booths[key]
		if !ok {
			// No tally row exists when a booth recorded no formal votes.
			continue
		}
		boothTotal := boothVotes[len(boothVotes)-1]

		acc, ok := sa1s[record[sa1ColID]]
		if !ok {
			acc = make([]float64, width)
			sa1s[strings.Clone(record[sa1ColID])] = acc
		}
		if boothTotal != 0 {
			// Multiply before dividing; the single rounding per element
			// keeps whole-number cases exact.
			for i, w := range boothVotes {
				acc[i] += w * attendance / boothTotal
			}
		}

		rows++
		if rows%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return sa1s, nil
}

// writeOutput emits the SA1-level CSV sorted by SA1 ID.
func (pp *ProjectionPhase) writeOutput(sa1s map[string][]float64) (int, error) {
	f, err := csvio.CreateOutput(pp.config.OutputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w := csvio.NewCRLFWriter(f)

	labels := pp.groups.Labels()
	header := make([]string, 0, len(labels)+2)
	header = append(header, "SA1_id")
	header = append(header, labels...)
	header = append(header, "Total")
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("error writing SA1 prefs header: %w", err)
	}

	ids := make([]string, 0, len(sa1s))
	for id := range sa1s {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	record := make([]string, 0, len(header))
	for _, id := range ids {
		record = append(record[:0], id)
		for _, v := range sa1s[id] {
			record = append(record, formatFloat(v))
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("error writing SA1 prefs line: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to finalise SA1 prefs output: %w", err)
	}
	return len(ids), nil
}

// formatFloat renders a projected vote count as the shortest decimal that
// round-trips, without exponent notation. Whole numbers print bare, so
// booth-level outputs re-read cleanly as integers.
func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
