package storage

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"expenses/internal/core"
)

// SeedFile is the category list read from the seed directory.
const SeedFile = "seed_categories.txt"

var defaultCategories = []string{"Food", "Transport", "Housing"}

// SeedCategories creates the seed categories when the store has none. It
// returns the number of categories created.
func SeedCategories(ctx context.Context, s Store, dir string) (int, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	names := readLines(filepath.Join(dir, SeedFile))
	if len(names) == 0 {
		names = defaultCategories
	}

	created := 0
	for _, raw := range names {
		name, err := core.NormalizeName(raw)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid seed category", "component", "storage", "name", raw, "error", err)
			continue
		}
		if _, err := s.CreateCategory(ctx, name); err != nil {
			return created, fmt.Errorf("seed category %q: %w", name, err)
		}
		created++
	}
	slog.InfoContext(ctx, "Seeded categories", "component", "storage", "count", created)
	return created, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
