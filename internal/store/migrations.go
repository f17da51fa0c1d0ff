package store

import (
	"context"
	"fmt"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/store/migrations"
)

// migrationStep is one schema_version -> schema_version transition.
type migrationStep struct {
	from, to string
	apply    func(ctx context.Context) error
}

// versionOrder lists every known schema_version in ascending order, the
// same one-entry-per-release layout as the teacher's migrations
// package, so Migrate can compute "everything strictly after
// the current version" without a graph walk.
var versionOrder = []string{
	"1.0.0", "1.1.0", "2.0.0", "2.0.1", "2.1.0", "2.2.0", "2.3.0", "2.4.0", "2.17.0",
}

// Migrate brings the database up to the newest known schema_version,
// running each intervening step in order. Steps run directly on the
// database, not inside a transaction, and a step's schema_version row is
// written only after that step returns without error.
// vaultRoot is used by steps that touch on-disk files (the v2.0.0
// frontmatter stamping, the v2.1.0 path-relativization); pass "" for a
// database-only migration (tests).
//
// It returns the list of versions it actually applied, empty if the
// database was already current. A failure midway leaves schema_version
// at the last successfully applied step, so the next call resumes from
// there; a failing step's own partial changes are not rolled back.
func (s *Store) Migrate(ctx context.Context, vaultRoot string) ([]string, error) {
	current, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	steps := s.pendingSteps(current, vaultRoot)
	if len(steps) == 0 {
		return nil, nil
	}

	var applied []string
	for _, step := range steps {
		if err := step.apply(ctx); err != nil {
			return applied, ferr.Wrap(ferr.MigrationFailure,
				fmt.Sprintf("migrate %s -> %s", step.from, step.to), err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, step.to); err != nil {
			return applied, ferr.Wrap(ferr.MigrationFailure, "record schema version "+step.to, err)
		}
		applied = append(applied, step.to)
	}
	return applied, nil
}

func (s *Store) currentSchemaVersion(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return "", ferr.Wrap(ferr.IO, "read schema_version", err)
	}
	defer rows.Close()
	seen := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", err
		}
		seen[v] = true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	highest := "1.0.0"
	for _, v := range versionOrder {
		if seen[v] {
			highest = v
		}
	}
	return highest, nil
}

func (s *Store) pendingSteps(current, vaultRoot string) []migrationStep {
	idx := -1
	for i, v := range versionOrder {
		if v == current {
			idx = i
			break
		}
	}
	if idx == -1 || idx == len(versionOrder)-1 {
		return nil
	}

	all := []migrationStep{
		{"1.0.0", "1.1.0", func(ctx context.Context) error { return nil }},
		{"1.1.0", "2.0.0", func(ctx context.Context) error {
			return migrations.ToV200(ctx, s.db, vaultRoot)
		}},
		{"2.0.0", "2.0.1", func(ctx context.Context) error {
			return migrations.ToV201(ctx, s.db)
		}},
		{"2.0.1", "2.1.0", func(ctx context.Context) error {
			return migrations.ToV210(ctx, s.db, vaultRoot)
		}},
		{"2.1.0", "2.2.0", func(ctx context.Context) error {
			return migrations.ToV220(ctx, s.db)
		}},
		{"2.2.0", "2.3.0", func(ctx context.Context) error {
			return migrations.ToV230(ctx, s.db)
		}},
		{"2.3.0", "2.4.0", func(ctx context.Context) error {
			return migrations.ToV240(ctx, s.db)
		}},
		{"2.4.0", "2.17.0", func(ctx context.Context) error {
			return migrations.ToV2170(ctx, s.db)
		}},
	}

	return all[idx:]
}
