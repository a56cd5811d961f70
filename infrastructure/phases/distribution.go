package phases

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-npp/infrastructure/csvio"
	"github.com/ahrav/go-npp/internal/domain"
	"github.com/ahrav/go-npp/internal/ports"
)

var _ ports.Phase = (*DistributionPhase)(nil)

// progressInterval is how many ballots pass between progress log checks.
const progressInterval = 100_000

// DistributionConfig names the inputs and output of the distribution phase.
type DistributionConfig struct {
	// Jurisdiction filters the polling-place reference, which is national.
	Jurisdiction domain.Jurisdiction `validate:"required"`

	// PrefsPath is the ballot preference CSV, optionally the sole entry of
	// a ZIP archive. One row per ballot.
	PrefsPath string `validate:"required"`

	// PollingPlacesPath is the polling-place reference CSV.
	PollingPlacesPath string `validate:"required"`

	// OutputPath is where the booth-level NPP CSV is written.
	OutputPath string `validate:"required"`
}

// DistributionPhase streams a ballot file, reduces each ballot to an
// ordering over the configured groups, and tallies orderings per booth.
//
// This is the pipeline's hot path: ballot files run to tens of millions of
// rows. Division and booth names are interned to 16-bit symbols, the csv
// reader reuses one record, preference cells are parsed with a digit-only
// byte scanner, and the per-ballot scratch slices are hoisted out of the
// loop, so a steady-state row allocates nothing beyond what encoding/csv
// itself requires.
//
// A DistributionPhase is single-use: Execute owns the tally map and the
// interner for the duration of one run.
type DistributionPhase struct {
	name    string
	config  DistributionConfig
	groups  *domain.GroupSet
	logger  *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
	printer *message.Printer
}

// boothMeta is the slice of a polling-place record the output needs.
// Latitude and longitude are carried as strings; their values are never
// used arithmetically, so they round-trip exactly.
type boothMeta struct {
	id        string
	division  string
	booth     string
	latitude  string
	longitude string
}

// prefPair is a (preference value, group index) pair awaiting ordering.
type prefPair struct {
	pref  int
	group int
}

// scratch holds the per-ballot working slices, hoisted so the hot loop
// reuses them across rows.
type scratch struct {
	bests []prefPair
	order []int
	out   []int
}

// NewDistributionPhase builds a distribution phase for one scenario.
// The name labels logs, traces and metrics; it is usually the scenario name.
func NewDistributionPhase(
	name string,
	config DistributionConfig,
	groups *domain.GroupSet,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*DistributionPhase, error) {
	if name == "" {
		return nil, ErrEmptyPhaseName
	}
	if groups == nil {
		return nil, ErrNilGroupSet
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &DistributionPhase{
		name:    name,
		config:  config,
		groups:  groups,
		logger:  logger.Named("distribute"),
		metrics: metrics,
		tracer:  otel.Tracer("npp-distribution"),
		printer: message.NewPrinter(language.English),
	}, nil
}

// Name returns the phase's identifier.
func (dp *DistributionPhase) Name() string { return dp.name }

// Execute runs the distribution: loads the polling-place reference, streams
// every ballot, aggregates special-vote booths per division, and writes the
// booth-level CSV. Any input-format, configuration or data-integrity
// problem aborts the run before an output file is completed.
func (dp *DistributionPhase) Execute(ctx context.Context) (err error) {
	ctx, span := dp.tracer.Start(ctx, "DistributionPhase.Execute",
		trace.WithAttributes(
			attribute.String("phase", "distribute"),
			attribute.String("scenario", dp.name),
			attribute.String("jurisdiction", dp.config.Jurisdiction.String()),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()
	start := time.Now()

	in := newInterner()

	dp.logger.Info("loading polling places and candidates",
		zap.String("polling_places", dp.config.PollingPlacesPath))
	booths, err := dp.loadPollingPlaces(in)
	if err != nil {
		return err
	}

	prefs, err := csvio.Open(dp.config.PrefsPath)
	if err != nil {
		return fmt.Errorf("could not open preferences file: %w", err)
	}
	defer prefs.Close()

	rdr := csvio.NewReader(prefs)
	header, err := rdr.Read()
	if err != nil {
		return fmt.Errorf("could not read preferences header in %s: %w", dp.config.PrefsPath, err)
	}
	// The reader reuses record storage; own the header before reading on.
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.Clone(h)
	}

	ci, err := newCandidateIndex(headers, dp.groups)
	if err != nil {
		return fmt.Errorf("resolving candidates against %s: %w", dp.config.PrefsPath, err)
	}

	dp.logger.Info("distributing preferences", zap.String("prefs", dp.config.PrefsPath))
	boothCounts, ballots, btl, err := dp.distribute(ctx, rdr, ci, in)
	if err != nil {
		return err
	}

	dp.logger.Info("preferencing complete",
		zap.String("ballots", dp.printer.Sprintf("%d", ballots)),
		zap.String("btl", dp.printer.Sprintf("%d", btl)),
		zap.Int("interned", in.len()))

	labels := map[string]string{"scenario": dp.name, "phase": "distribute"}
	dp.metrics.RecordCounter("npp_ballots_processed_total", float64(ballots), labels)
	dp.metrics.RecordCounter("npp_btl_ballots_total", float64(btl), labels)

	dp.logger.Info("aggregating special votes")
	specials := aggregateSpecials(boothCounts, in, dp.groups.CountOrderings())

	dp.logger.Info("writing booth tallies", zap.String("output", dp.config.OutputPath))
	rows, err := dp.writeOutput(boothCounts, specials, booths, in)
	if err != nil {
		return err
	}

	dp.metrics.RecordCounter("npp_output_rows_total", float64(rows), labels)
	dp.metrics.RecordLatency("distribute", time.Since(start), labels)
	return nil
}

// loadPollingPlaces reads the polling-place reference, filtered to the
// scenario's jurisdiction. The file carries two non-data lines before the
// rows proper. The only consistent booth identifier across AEC files is
// the (Division, Booth) name pair, so that is the key.
func (dp *DistributionPhase) loadPollingPlaces(in *interner) (map[divBooth]boothMeta, error) {
	f, err := os.Open(dp.config.PollingPlacesPath)
	if err != nil {
		return nil, fmt.Errorf("could not open polling places file: %w", err)
	}
	defer f.Close()

	rdr := csvio.NewReader(f)
	booths := make(map[divBooth]boothMeta)
	row := 0
	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", dp.config.PollingPlacesPath, err)
		}
		row++
		if row <= 2 {
			continue
		}
		if len(record) < 15 {
			return nil, fmt.Errorf("%w: %s row %d has %d columns, expected 15",
				domain.ErrMalformedRow, dp.config.PollingPlacesPath, row, len(record))
		}
		if record[0] != dp.config.Jurisdiction.String() {
			continue
		}

		division, err := in.intern(record[2])
		if err != nil {
			return nil, err
		}
		booth, err := in.intern(record[5])
		if err != nil {
			return nil, err
		}
		booths[divBooth{division, booth}] = boothMeta{
			id:        strings.Clone(record[3]),
			division:  in.resolve(division),
			booth:     in.resolve(booth),
			latitude:  strings.Clone(record[13]),
			longitude: strings.Clone(record[14]),
		}
	}
	dp.logger.Debug("loaded polling places", zap.Int("count", len(booths)))
	return booths, nil
}

// distribute is the main ballot loop.
func (dp *DistributionPhase) distribute(
	ctx context.Context,
	rdr *csv.Reader,
	ci *candidateIndex,
	in *interner,
) (map[divBooth][]int, int, int, error) {
	comboCount := dp.groups.CountOrderings()
	groupCount := dp.groups.Len()
	boothCounts := make(map[divBooth][]int)

	sc := &scratch{
		bests: make([]prefPair, 0, groupCount),
		order: make([]int, groupCount),
		out:   make([]int, 0, groupCount),
	}

	progressLog := rate.NewLimiter(rate.Every(2*time.Second), 1)
	ballots, btl := 0, 0

	for {
		record, err := rdr.Read()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, 0, 0, fmt.Errorf("reading %s: %w", dp.config.PrefsPath, err)
		}
		if len(record) < prefsFixedColumns {
			return nil, 0, 0, fmt.Errorf("%w: ballot row %d has %d columns",
				domain.ErrMalformedRow, ballots+1, len(record))
		}
		// 2019+ files never carry a "---" line; its presence means the file
		// is in the superseded 2016 layout.
		if strings.HasPrefix(record[1], "---") {
			return nil, 0, 0, fmt.Errorf(
				"%w (%s): upgrade the file to the 2019+ layout before distributing",
				domain.ErrLegacyFormat, dp.config.PrefsPath)
		}

		division, err := in.intern(record[1])
		if err != nil {
			return nil, 0, 0, err
		}
		booth, err := in.intern(record[2])
		if err != nil {
			return nil, 0, 0, err
		}

		prefIdx, isBTL := dp.handleBelow(record, ci, sc)
		if isBTL {
			btl++
		} else {
			prefIdx = dp.distributeAbove(record, ci, sc)
		}

		key := divBooth{division, booth}
		counts, ok := boothCounts[key]
		if !ok {
			counts = make([]int, comboCount)
			boothCounts[key] = counts
		}
		counts[prefIdx]++

		ballots++
		if ballots%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, 0, err
			}
			if progressLog.Allow() {
				dp.logger.Info("preferencing progress",
					zap.String("ballots", dp.printer.Sprintf("%d", ballots)))
			}
		}
	}
	return boothCounts, ballots, btl, nil
}

// handleBelow decides below-the-line formality and, when formal, reduces
// the ballot's BTL preferences to an ordering index.
//
// Per s268A of the Commonwealth Electoral Act a ballot is BTL-formal iff
// the preferences 1 through 6 each appear exactly once among its BTL
// squares. The statute shortens the required sequence when fewer than six
// BTL candidates exist; like earlier toolchains this deliberately checks
// six regardless, which reproduces the published BTL counts.
func (dp *DistributionPhase) handleBelow(record []string, ci *candidateIndex, sc *scratch) (int, bool) {
	if len(record) <= ci.belowStart {
		return 0, false
	}

	var btlCounts [6]int
	order := sc.order
	for g := range order {
		order[g] = math.MaxInt
	}

	for i := ci.belowStart; i < len(record); i++ {
		s := record[i]
		if s == "" {
			continue
		}
		v := parseDigits(s)
		if v >= 1 && v <= 6 {
			btlCounts[v-1]++
		}
		if i >= len(ci.belowGroups) {
			continue
		}
		if g := ci.belowGroups[i]; g >= 0 && v < order[g] {
			order[g] = v
		}
	}

	for _, c := range btlCounts {
		if c != 1 {
			return 0, false
		}
	}

	sc.bests = sc.bests[:0]
	for g, v := range order {
		if v != math.MaxInt {
			sc.bests = append(sc.bests, prefPair{pref: v, group: g})
		}
	}
	return dp.rankBests(sc), true
}

// distributeAbove reduces a ballot's above-the-line preferences to an
// ordering index: for each group, the best preference across its ticket
// columns, with unmarked groups excluded.
func (dp *DistributionPhase) distributeAbove(record []string, ci *candidateIndex, sc *scratch) int {
	candsCount := len(ci.belowGroups) - prefsFixedColumns
	sc.bests = sc.bests[:0]

	for g, candNums := range ci.groupsAbove {
		curBest := candsCount
		for _, cn := range candNums {
			idx := cn + prefsFixedColumns - 1
			if idx >= len(record) {
				continue
			}
			s := record[idx]
			if s == "" {
				continue
			}
			if v := parseDigits(s); v < curBest {
				curBest = v
			}
		}
		if curBest < candsCount {
			sc.bests = append(sc.bests, prefPair{pref: curBest, group: g})
		}
	}
	return dp.rankBests(sc)
}

// rankBests sorts the collected (preference, group) pairs and ranks the
// resulting group ordering. The pair count is bounded by the group count
// (single digits in practice), so an in-place insertion sort beats the
// generic sort and allocates nothing.
func (dp *DistributionPhase) rankBests(sc *scratch) int {
	bests := sc.bests
	for i := 1; i < len(bests); i++ {
		for j := i; j > 0 && less(bests[j], bests[j-1]); j-- {
			bests[j], bests[j-1] = bests[j-1], bests[j]
		}
	}

	sc.out = sc.out[:0]
	for _, b := range bests {
		sc.out = append(sc.out, b.group)
	}
	return domain.Rank(sc.out, dp.groups.Len())
}

// less orders pairs by preference value, then group index. Preference ties
// cannot occur on a formal ballot but informal ATL markings can produce
// them; the group tiebreak keeps the result deterministic.
func less(a, b prefPair) bool {
	if a.pref != b.pref {
		return a.pref < b.pref
	}
	return a.group < b.group
}

// aggregateSpecials partitions special-vote booths (ABSENT_5, POSTAL_2, …)
// out of the booth map into per-division category aggregates. Every
// division present in the tally gets a row for each category, zero or not,
// matching the established output layout.
func aggregateSpecials(
	boothCounts map[divBooth][]int,
	in *interner,
	size int,
) map[domain.DivisionSpecialKey][]int {
	specials := make(map[domain.DivisionSpecialKey][]int)
	var remove []divBooth

	for bk, counts := range boothCounts {
		division := in.resolve(bk.division)
		boothName := in.resolve(bk.booth)
		for _, marker := range domain.SpecialMarkers {
			key := domain.DivisionSpecialKey{
				Division: division,
				Category: domain.SpecialCategoryFor(marker),
			}
			agg, ok := specials[key]
			if !ok {
				agg = make([]int, size)
				specials[key] = agg
			}
			if strings.Contains(boothName, marker) {
				for i := range counts {
					agg[i] += counts[i]
				}
				remove = append(remove, bk)
				break
			}
		}
	}
	for _, bk := range remove {
		delete(boothCounts, bk)
	}
	return specials
}

// writeOutput emits the booth-level CSV: a header, one row per ordinary
// booth sorted by (division, booth), then one row per (division, special
// category). Returns the number of data rows written.
func (dp *DistributionPhase) writeOutput(
	boothCounts map[divBooth][]int,
	specials map[domain.DivisionSpecialKey][]int,
	booths map[divBooth]boothMeta,
	in *interner,
) (int, error) {
	f, err := csvio.CreateOutput(dp.config.OutputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w := csvio.NewCRLFWriter(f)

	labels := dp.groups.Labels()
	header := make([]string, 0, len(nppFieldNames)+len(labels)+1)
	header = append(header, nppFieldNames[:]...)
	header = append(header, labels...)
	header = append(header, "Total")
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("error writing booths header: %w", err)
	}

	sorted := make([]divBooth, 0, len(boothCounts))
	for bk := range boothCounts {
		sorted = append(sorted, bk)
	}
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := in.resolve(sorted[i].division), in.resolve(sorted[j].division)
		if di != dj {
			return di < dj
		}
		return in.resolve(sorted[i].booth) < in.resolve(sorted[j].booth)
	})

	rows := 0
	record := make([]string, 0, len(header))
	for _, bk := range sorted {
		meta, ok := booths[bk]
		if !ok {
			return rows, fmt.Errorf("%w: %q / %q tallied from %s but absent from %s",
				domain.ErrUnknownBooth,
				in.resolve(bk.division), in.resolve(bk.booth),
				dp.config.PrefsPath, dp.config.PollingPlacesPath)
		}
		record = append(record[:0], meta.id, meta.division, meta.booth, meta.latitude, meta.longitude)
		record = appendCounts(record, boothCounts[bk])
		if err := w.Write(record); err != nil {
			return rows, fmt.Errorf("error writing booths: %w", err)
		}
		rows++
	}

	specialKeys := make([]domain.DivisionSpecialKey, 0, len(specials))
	for k := range specials {
		specialKeys = append(specialKeys, k)
	}
	sort.Slice(specialKeys, func(i, j int) bool {
		if specialKeys[i].Division != specialKeys[j].Division {
			return specialKeys[i].Division < specialKeys[j].Division
		}
		return specialKeys[i].Category < specialKeys[j].Category
	})
	for _, k := range specialKeys {
		record = append(record[:0], "", k.Division, string(k.Category), "", "")
		record = appendCounts(record, specials[k])
		if err := w.Write(record); err != nil {
			return rows, fmt.Errorf("error writing division specials: %w", err)
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fmt.Errorf("failed to finalise booths output: %w", err)
	}
	return rows, nil
}

// appendCounts appends each count and the trailing total.
func appendCounts(record []string, counts []int) []string {
	total := 0
	for _, c := range counts {
		record = append(record, strconv.Itoa(c))
		total += c
	}
	return append(record, strconv.Itoa(total))
}

// isEOF reports whether a csv read error is a clean end of input.
func isEOF(err error) bool { return errors.Is(err, io.EOF) }
