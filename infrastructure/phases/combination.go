package phases

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
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

var _ ports.Phase = (*CombinationPhase)(nil)

// CombinationConfig names the inputs and outputs of the combination phase.
type CombinationConfig struct {
	// SA1PrefsPath is the SA1-level NPP CSV from the projection phase.
	SA1PrefsPath string `validate:"required"`

	// SA1DistrictsPath is the SA1 → district correspondence CSV. Rows are
	// (SA1 ID, district name) with an optional population column; an SA1
	// split across districts appears once per district.
	SA1DistrictsPath string `validate:"required"`

	// OutputPath is where the district-level NPP CSV is written.
	OutputPath string `validate:"required"`

	// WriteJSON also writes a JSON rendering of the district table next to
	// the CSV, for downstream visualisation.
	WriteJSON bool
}

// CombinationPhase aggregates SA1-level tallies into analysis districts
// using a correspondence file, rescaling each SA1's contribution to its
// district population when populations are given.
type CombinationPhase struct {
	name    string
	config  CombinationConfig
	groups  *domain.GroupSet
	logger  *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewCombinationPhase builds a combination phase for one scenario.
func NewCombinationPhase(
	name string,
	config CombinationConfig,
	groups *domain.GroupSet,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*CombinationPhase, error) {
	if name == "" {
		return nil, ErrEmptyPhaseName
	}
	if groups == nil {
		return nil, ErrNilGroupSet
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &CombinationPhase{
		name:    name,
		config:  config,
		groups:  groups,
		logger:  logger.Named("combine"),
		metrics: metrics,
		tracer:  otel.Tracer("npp-combination"),
	}, nil
}

// Name returns the phase's identifier.
func (cp *CombinationPhase) Name() string { return cp.name }

// Execute runs the combination: loads the SA1 tallies, streams the
// correspondence file accumulating per-district totals, and writes the
// district CSV (plus the optional JSON sidecar).
func (cp *CombinationPhase) Execute(ctx context.Context) (err error) {
	ctx, span := cp.tracer.Start(ctx, "CombinationPhase.Execute",
		trace.WithAttributes(
			attribute.String("phase", "combine"),
			attribute.String("scenario", cp.name),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()
	start := time.Now()

	cp.logger.Info("combining SA1s into districts",
		zap.String("sa1_prefs", cp.config.SA1PrefsPath),
		zap.String("correspondence", cp.config.SA1DistrictsPath))

	sa1Prefs, header, err := cp.loadSA1Prefs()
	if err != nil {
		return err
	}

	districts, err := cp.combine(ctx, sa1Prefs)
	if err != nil {
		return err
	}

	if err := cp.writeOutput(districts, header); err != nil {
		return err
	}
	if cp.config.WriteJSON {
		if err := cp.writeJSON(districts, header); err != nil {
			return err
		}
	}

	labels := map[string]string{"scenario": cp.name, "phase": "combine"}
	cp.metrics.RecordCounter("npp_output_rows_total", float64(len(districts)), labels)
	cp.metrics.RecordLatency("combine", time.Since(start), labels)
	cp.logger.Info("combination complete", zap.Int("districts", len(districts)))
	return nil
}

// loadSA1Prefs reads the projection output into a map keyed by SA1 ID.
// The header is carried through to the district output so the ordering
// labels stay exactly as the upstream phase wrote them.
func (cp *CombinationPhase) loadSA1Prefs() (map[string][]float64, []string, error) {
	f, err := csvio.Open(cp.config.SA1PrefsPath)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"could not open SA1 preferences (has the projection phase run?): %w", err)
	}
	defer f.Close()

	rdr := csvio.NewReader(f)
	rawHeader, err := rdr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("could not read SA1 preferences header in %s: %w", cp.config.SA1PrefsPath, err)
	}
	header := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		header[i] = strings.Clone(h)
	}

	sa1Prefs := make(map[string][]float64)
	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, nil, fmt.Errorf("reading %s: %w", cp.config.SA1PrefsPath, err)
		}
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("%w: SA1 preferences row has %d columns",
				domain.ErrMalformedRow, len(record))
		}
		values := make([]float64, 0, len(record)-1)
		for _, cell := range record[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = 0
			}
			values = append(values, v)
		}
		sa1Prefs[strings.Clone(record[0])] = values
	}
	return sa1Prefs, header, nil
}

// combine streams the SA1 → district correspondence and accumulates each
// SA1's (possibly rescaled) tally into its district.
//
// When the correspondence carries a population column, an SA1's tally is
// scaled by population / tally-total, which both normalises House
// attendance to resident population and apportions split SA1s. A zero
// population, or a zero tally total, contributes nothing rather than a
// division by zero. Without a population column there is no way to
// apportion a split SA1, so only its first-seen district row counts.
func (cp *CombinationPhase) combine(
	ctx context.Context,
	sa1Prefs map[string][]float64,
) (map[string][]float64, error) {
	f, err := csvio.Open(cp.config.SA1DistrictsPath)
	if err != nil {
		return nil, fmt.Errorf("could not open SA1 to district correspondence: %w", err)
	}
	defer f.Close()

	rdr := csvio.NewReader(f)
	if _, err := rdr.Read(); err != nil {
		return nil, fmt.Errorf("could not read correspondence header in %s: %w", cp.config.SA1DistrictsPath, err)
	}

	districts := make(map[string][]float64)
	seen := make(map[string]struct{})
	rows := 0
	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", cp.config.SA1DistrictsPath, err)
		}
		if len(record) < 2 {
			continue
		}

		id := strings.TrimSpace(record[0])
		dist := strings.TrimSpace(record[1])
		sa1Npps, ok := sa1Prefs[id]
		if !ok || len(sa1Npps) == 0 {
			continue
		}

		multiplier := 1.0
		if len(record) >= 3 {
			sa1Total := sa1Npps[len(sa1Npps)-1]
			pop, err := strconv.ParseFloat(record[2], 64)
			if err != nil {
				pop = 0
			}
			if pop == 0 || sa1Total == 0 {
				multiplier = 0
			} else {
				multiplier = pop / sa1Total
			}
		} else {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[strings.Clone(id)] = struct{}{}
		}

		acc, ok := districts[dist]
		if !ok {
			acc = make([]float64, len(sa1Npps))
			districts[strings.Clone(dist)] = acc
		}
		for i, v := range sa1Npps {
			if i < len(acc) {
				acc[i] += v * multiplier
			}
		}

		rows++
		if rows%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return districts, nil
}

// writeOutput emits the district CSV sorted by district name.
func (cp *CombinationPhase) writeOutput(districts map[string][]float64, sa1Header []string) error {
	f, err := csvio.CreateOutput(cp.config.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csvio.NewCRLFWriter(f)

	header := append([]string{"District"}, sa1Header[1:]...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("error writing district header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, dist := range sortedKeys(districts) {
		record = append(record[:0], dist)
		for _, v := range districts[dist] {
			record = append(record, formatFloat(v))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing district line: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to finalise district output: %w", err)
	}
	return nil
}

// writeJSON writes the district table as JSON next to the CSV, keyed for
// direct consumption by visualisation frontends.
func (cp *CombinationPhase) writeJSON(districts map[string][]float64, sa1Header []string) error {
	path := strings.TrimSuffix(cp.config.OutputPath, filepath.Ext(cp.config.OutputPath)) + ".json"
	f, err := csvio.CreateOutput(path)
	if err != nil {
		return fmt.Errorf("error creating district JSON file: %w", err)
	}
	defer f.Close()

	out := struct {
		Parties    map[string][]string  `json:"parties"`
		FieldNames []string             `json:"field_names"`
		Data       map[string][]float64 `json:"data"`
	}{
		Parties:    cp.groups.CandidateMap(),
		FieldNames: sa1Header[1:],
		Data:       districts,
	}
	if err := json.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("error writing district JSON file: %w", err)
	}
	return nil
}

// sortedKeys returns the map's keys in sorted order.
func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
