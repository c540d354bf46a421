// Command seed-statutes loads a YAML list of statutes into the Neo4j statute
// graph used for question enrichment. Seeding merges on statute code, so it
// can be re-run after editing the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/ailegalmate/legalmate/engine/graph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gopkg.in/yaml.v3"
)

func main() {
	file := flag.String("file", "statutes.yaml", "YAML file with a list of statutes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("read statutes", "err", err)
		os.Exit(1)
	}
	statutes, err := parseStatutes(data)
	if err != nil {
		logger.Error("parse statutes", "file", *file, "err", err)
		os.Exit(1)
	}

	driver, err := neo4j.NewDriverWithContext(
		envOr("NEO4J_URL", "neo4j://localhost:7687"),
		neo4j.BasicAuth(envOr("NEO4J_USER", "neo4j"), os.Getenv("NEO4J_PASS"), ""),
	)
	if err != nil {
		logger.Error("neo4j connect", "err", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)

	if err := graph.New(driver).Seed(ctx, statutes); err != nil {
		logger.Error("seed", "err", err)
		os.Exit(1)
	}
	logger.Info("statutes seeded", "count", len(statutes), "file", *file)
}

// parseStatutes decodes and checks a statute list. Every statute needs a
// code, codes are unique, and REFERS_TO targets must be in the same file.
func parseStatutes(data []byte) ([]graph.Statute, error) {
	var statutes []graph.Statute
	if err := yaml.Unmarshal(data, &statutes); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if len(statutes) == 0 {
		return nil, errors.New("seed: no statutes")
	}

	codes := make(map[string]bool, len(statutes))
	for i, s := range statutes {
		code := strings.TrimSpace(s.Code)
		if code == "" {
			return nil, fmt.Errorf("seed: statute %d: missing code", i)
		}
		if codes[code] {
			return nil, fmt.Errorf("seed: duplicate code %q", code)
		}
		codes[code] = true
		statutes[i].Code = code
	}
	for _, s := range statutes {
		for _, to := range s.RefersTo {
			if !codes[to] {
				return nil, fmt.Errorf("seed: %s refers to unknown code %q", s.Code, to)
			}
		}
	}
	return statutes, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
