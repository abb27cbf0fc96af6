// Command replay scores a CSV of feature rows through the full decision
// pipeline using the rule-based scorer and an in-memory store, then checks
// that decisions, stored history and the dashboard summary agree.
//
// The CSV needs a header with state, month, rainfall, ph, bod, nitrate and
// temp columns. An optional expected column holds the risk level each row
// should resolve to.
//
// Usage:
//
//	go run ./cmd/replay -in cmd/replay/testdata/features.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
	"github.com/couchcryptid/outbreak-risk-service/internal/pipeline"
	"github.com/couchcryptid/outbreak-risk-service/internal/report"
	"github.com/couchcryptid/outbreak-risk-service/internal/scoring"
)

var replayStart = time.Date(2024, time.July, 14, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// row is one parsed CSV line.
type row struct {
	line     int
	rec      domain.FeatureRecord
	expected domain.RiskLevel
}

// outcome pairs a row with the decision it produced.
type outcome struct {
	row      row
	decision domain.Decision
}

func main() {
	in := flag.String("in", "", "path to a feature CSV")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open %s: %v\n", *in, err)
		os.Exit(1)
	}
	defer f.Close()

	if code := run(f, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(in io.Reader, out io.Writer) int {
	rows, err := loadRows(in)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load rows: %v\n", err)
		return 1
	}

	// Fixed clock so every row lands inside the heatmap window.
	clock := clockwork.NewFakeClockAt(replayStart)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	store := memory.NewStore(clock)
	aggregator := report.NewAggregator(store, nil, 0, nil, clock, logger, metrics)
	scorer := scoring.NewRuleScorer()
	predictor := pipeline.NewPredictor(scorer, store, aggregator, clock, logger, metrics, 0)

	ctx := context.Background()

	fmt.Fprintln(out, "=== Outbreak Risk Replay ===")
	fmt.Fprintln(out)

	decisions := make([]outcome, 0, len(rows))
	scored := &phase{name: "Phase 1: Scoring"}
	for _, r := range rows {
		d, err := predictor.Predict(ctx, r.rec)
		if err != nil {
			scored.errorf("line %d: %v", r.line, err)
			continue
		}
		decisions = append(decisions, outcome{row: r, decision: d})
		clock.Advance(time.Minute)
	}

	phases := []*phase{
		scored,
		validateDecisions(ctx, scorer, decisions),
		validateExpected(decisions),
		validateHistory(ctx, store, decisions),
		validateSummary(ctx, aggregator, decisions),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d read, %d scored\n", len(rows), len(decisions))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

var requiredColumns = []string{"state", "month", "rainfall", "ph", "bod", "nitrate", "temp"}

func loadRows(in io.Reader) ([]row, error) {
	r := csv.NewReader(in)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	col := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(rec []string, name string, line int) (float64, error) {
		v, err := strconv.ParseFloat(field(rec, name), 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
		}
		return v, nil
	}

	rows := make([]row, 0, len(all)-1)
	for i, rec := range all[1:] {
		line := i + 2
		month, err := strconv.Atoi(field(rec, "month"))
		if err != nil {
			return nil, fmt.Errorf("line %d: month: %w", line, err)
		}
		values := make(map[string]float64, 5)
		for _, name := range []string{"rainfall", "ph", "bod", "nitrate", "temp"} {
			v, err := number(rec, name, line)
			if err != nil {
				return nil, err
			}
			values[name] = v
		}
		rows = append(rows, row{
			line: line,
			rec: domain.FeatureRecord{
				State:    domain.NormalizeState(field(rec, "state")),
				Month:    month,
				Rainfall: values["rainfall"],
				PH:       values["ph"],
				BOD:      values["bod"],
				Nitrate:  values["nitrate"],
				Temp:     values["temp"],
			},
			expected: domain.RiskLevel(strings.ToUpper(field(rec, "expected"))),
		})
	}
	return rows, nil
}

// ── Validation phases ──

func validateDecisions(ctx context.Context, scorer domain.Scorer, outcomes []outcome) *phase {
	p := &phase{name: "Phase 2: Decision Invariants"}
	for _, o := range outcomes {
		d, line := o.decision, o.row.line

		scores, err := scorer.Score(ctx, o.row.rec)
		if err != nil {
			p.errorf("line %d: rescore: %v", line, err)
			continue
		}
		level, prob := domain.ResolveRisk(scores.Probabilities)
		if d.RiskLevel != level || d.Probability != prob {
			p.errorf("line %d: decision %s/%v, distribution resolves to %s/%v", line, d.RiskLevel, d.Probability, level, prob)
		}
		if want := domain.ClassifyConfidence(scores.Probabilities.Max()); d.Confidence != want {
			p.errorf("line %d: confidence %s, max probability gives %s", line, d.Confidence, want)
		}
		if !d.RiskLevel.Valid() {
			p.errorf("line %d: unknown risk level %q", line, d.RiskLevel)
		}
		if d.Probability < 0 || d.Probability > 1 {
			p.errorf("line %d: probability %v outside [0,1]", line, d.Probability)
		}
		if d.Alert != (d.RiskLevel == domain.RiskHigh) {
			p.errorf("line %d: alert=%v for %s", line, d.Alert, d.RiskLevel)
		}
		if n := len(d.Factors); n == 0 || n > domain.MaxFactors {
			p.errorf("line %d: %d factors", line, n)
		}
		switch d.RiskLevel {
		case domain.RiskHigh:
			if d.Probability <= domain.HighRiskThreshold {
				p.errorf("line %d: HIGH with probability %v", line, d.Probability)
			}
		case domain.RiskModerate:
			if d.Probability <= domain.ModerateRiskThreshold {
				p.errorf("line %d: MODERATE with probability %v", line, d.Probability)
			}
		}
	}
	return p
}

func validateExpected(outcomes []outcome) *phase {
	p := &phase{name: "Phase 3: Expected Labels"}
	for _, o := range outcomes {
		if o.row.expected == "" {
			continue
		}
		if o.decision.RiskLevel != o.row.expected {
			p.errorf("line %d (%s): got %s, want %s", o.row.line, o.row.rec.State, o.decision.RiskLevel, o.row.expected)
		}
	}
	return p
}

func validateHistory(ctx context.Context, store *memory.Store, outcomes []outcome) *phase {
	p := &phase{name: "Phase 4: Stored History"}

	preds, err := store.RecentPredictions(ctx, time.Time{})
	if err != nil {
		p.errorf("read predictions: %v", err)
		return p
	}
	alerts, err := store.RecentAlerts(ctx, len(outcomes)+1)
	if err != nil {
		p.errorf("read alerts: %v", err)
		return p
	}

	var high int
	for _, o := range outcomes {
		if o.decision.Alert {
			high++
		}
	}
	if len(preds) != len(outcomes) {
		p.errorf("stored %d predictions for %d decisions", len(preds), len(outcomes))
	}
	if len(alerts) != high {
		p.errorf("stored %d alerts for %d HIGH decisions", len(alerts), high)
	}

	byCorrelation := make(map[string]domain.PredictionRecord, len(preds))
	for _, pr := range preds {
		if pr.CorrelationID == "" {
			p.errorf("prediction %d: missing correlation id", pr.ID)
			continue
		}
		byCorrelation[pr.CorrelationID] = pr
	}
	for _, a := range alerts {
		pr, ok := byCorrelation[a.CorrelationID]
		switch {
		case !ok:
			p.errorf("alert %d: no prediction with correlation id %q", a.ID, a.CorrelationID)
		case pr.RiskLevel != domain.RiskHigh:
			p.errorf("alert %d: linked prediction %d is %s", a.ID, pr.ID, pr.RiskLevel)
		case a.State != pr.State:
			p.errorf("alert %d: state %q, prediction state %q", a.ID, a.State, pr.State)
		}
	}
	return p
}

func validateSummary(ctx context.Context, agg *report.Aggregator, outcomes []outcome) *phase {
	p := &phase{name: "Phase 5: Dashboard Consistency"}

	summary, err := agg.Summary(ctx)
	if err != nil {
		p.errorf("summary: %v", err)
		return p
	}
	if summary.TotalPredictions != int64(len(outcomes)) {
		p.errorf("summary total %d, want %d", summary.TotalPredictions, len(outcomes))
	}
	if sum := summary.HighRisk + summary.ModerateRisk + summary.LowRisk; sum != summary.TotalPredictions {
		p.errorf("level counts sum to %d, total is %d", sum, summary.TotalPredictions)
	}

	points, err := agg.Heatmap(ctx)
	if err != nil {
		p.errorf("heatmap: %v", err)
		return p
	}
	if len(points) != len(outcomes) {
		p.errorf("heatmap has %d points, want %d", len(points), len(outcomes))
	}
	return p
}
