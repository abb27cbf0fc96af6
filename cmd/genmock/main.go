// Command genmock generates a deterministic CSV of synthetic feature rows for
// cmd/replay. Each row is labelled with the risk level the rule-based scorer
// resolves it to, so the fixture tracks real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out cmd/replay/testdata/generated.csv -rows 200 -seed 7
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/scoring"
)

// mockStates are the states rows are drawn from.
var mockStates = []string{
	"Assam", "Bihar", "Kerala", "Odisha", "West Bengal",
	"Uttar Pradesh", "Maharashtra", "Tamil Nadu", "Meghalaya", "Manipur",
}

var header = []string{"state", "month", "rainfall", "ph", "bod", "nitrate", "temp", "expected"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the feature CSV")
	rows := flag.Int("rows", 100, "number of rows to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *rows <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -rows > 0")
	}

	records, err := generate(context.Background(), *rows, *seed)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeCSV(f, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d rows: %s", len(records), *out)

	printStats(records)
	return nil
}

// labelled is a feature record plus the level it resolves to.
type labelled struct {
	rec   domain.FeatureRecord
	level domain.RiskLevel
}

// generate draws n records from a seeded source and labels each one with the
// rule-based scorer.
func generate(ctx context.Context, n int, seed uint64) ([]labelled, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scorer := scoring.NewRuleScorer()

	out := make([]labelled, 0, n)
	for range n {
		rec := domain.FeatureRecord{
			State:    mockStates[rng.IntN(len(mockStates))],
			Month:    1 + rng.IntN(12),
			Rainfall: round1(rng.Float64() * 500),
			PH:       round1(5.5 + rng.Float64()*3),
			BOD:      round1(rng.Float64() * 8),
			Nitrate:  round1(rng.Float64() * 6),
			Temp:     round1(15 + rng.Float64()*20),
		}
		scores, err := scorer.Score(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("score row: %w", err)
		}
		level, _ := domain.ResolveRisk(scores.Probabilities)
		out = append(out, labelled{rec: rec, level: level})
	}
	return out, nil
}

func writeCSV(w io.Writer, records []labelled) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.rec.State,
			strconv.Itoa(r.rec.Month),
			formatFloat(r.rec.Rainfall),
			formatFloat(r.rec.PH),
			formatFloat(r.rec.BOD),
			formatFloat(r.rec.Nitrate),
			formatFloat(r.rec.Temp),
			string(r.level),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func printStats(records []labelled) {
	levels := make(map[domain.RiskLevel]int)
	states := make(map[string]int)
	for _, r := range records {
		levels[r.level]++
		states[r.rec.State]++
	}

	fmt.Println("\nRisk levels:")
	for _, l := range domain.RiskLevels {
		fmt.Printf("  %-10s %d\n", l, levels[l])
	}

	names := make([]string, 0, len(states))
	for s := range states {
		names = append(names, s)
	}
	sort.Strings(names)
	fmt.Println("\nStates:")
	for _, s := range names {
		fmt.Printf("  %-15s %d\n", s, states[s])
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
