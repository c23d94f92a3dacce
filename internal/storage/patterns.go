package storage

import (
	"database/sql"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"admem/internal/errors"
)

// PatternsFor returns stored patterns applicable to a tech stack and project
// type, most used first, success rate breaking ties. A pattern with no stack
// or type restriction applies everywhere.
func (db *DB) PatternsFor(techStack []string, projectType string, limit int) ([]*DecisionPattern, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT id, name, description, tech_stack, project_types, usage_count, success_rate
		FROM decision_patterns
		ORDER BY usage_count DESC, success_rate DESC`)
	if err != nil {
		return nil, errors.NewStorageError("load patterns", "SELECT FROM decision_patterns", err)
	}
	defer rows.Close()

	var patterns []*DecisionPattern
	for rows.Next() {
		var p DecisionPattern
		var stack, types string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &stack, &types, &p.UsageCount, &p.SuccessRate); err != nil {
			return nil, errors.NewStorageError("scan pattern", "SELECT FROM decision_patterns", err)
		}
		p.TechStack = unmarshalStrings(stack)
		p.ProjectTypes = unmarshalStrings(types)
		if !patternApplies(&p, techStack, projectType) {
			continue
		}
		patterns = append(patterns, &p)
		if len(patterns) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterate patterns", "SELECT FROM decision_patterns", err)
	}
	return patterns, nil
}

func patternApplies(p *DecisionPattern, techStack []string, projectType string) bool {
	if len(p.ProjectTypes) > 0 && projectType != "" {
		found := false
		for _, t := range p.ProjectTypes {
			if t == projectType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(p.TechStack) == 0 || len(techStack) == 0 {
		return true
	}
	for _, want := range p.TechStack {
		for _, have := range techStack {
			if want == have {
				return true
			}
		}
	}
	return false
}

// UpsertPattern inserts or replaces a pattern by name. Used by the seed
// path; regular operation never writes patterns.
func (db *DB) UpsertPattern(p *DecisionPattern) error {
	return db.WithTx(func(tx *sql.Tx) error {
		return upsertPatternTx(tx, p)
	})
}

func upsertPatternTx(tx *sql.Tx, p *DecisionPattern) error {
	if p.Name == "" {
		return errors.NewValidationError("name", "must not be empty")
	}
	if p.SuccessRate < 0 || p.SuccessRate > 1 {
		return errors.NewValidationError("success_rate", "must be within [0, 1]")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := tx.Exec(`
		INSERT INTO decision_patterns (id, name, description, tech_stack, project_types, usage_count, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			tech_stack = excluded.tech_stack,
			project_types = excluded.project_types,
			usage_count = excluded.usage_count,
			success_rate = excluded.success_rate`,
		p.ID, p.Name, p.Description, marshalStrings(p.TechStack),
		marshalStrings(p.ProjectTypes), p.UsageCount, p.SuccessRate)
	if err != nil {
		return errors.NewStorageError("upsert pattern", "INSERT INTO decision_patterns", err)
	}
	return nil
}

type patternSeedFile struct {
	Patterns []patternSeed `toml:"patterns"`
}

type patternSeed struct {
	Name         string   `toml:"name"`
	Description  string   `toml:"description"`
	TechStack    []string `toml:"tech_stack"`
	ProjectTypes []string `toml:"project_types"`
	UsageCount   int      `toml:"usage_count"`
	SuccessRate  float64  `toml:"success_rate"`
}

// SeedPatterns loads a TOML pattern catalog and upserts every entry. The
// whole catalog lands in one transaction, so a bad entry leaves the stored
// set untouched.
func (db *DB) SeedPatterns(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(errors.ConfigMissing, "read pattern seed file", err)
	}
	var file patternSeedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return 0, errors.Wrap(errors.ValidationFailed, "parse pattern seed file", err)
	}

	seeded := 0
	err = db.WithTx(func(tx *sql.Tx) error {
		for i := range file.Patterns {
			seed := file.Patterns[i]
			pattern := &DecisionPattern{
				Name:         seed.Name,
				Description:  seed.Description,
				TechStack:    seed.TechStack,
				ProjectTypes: seed.ProjectTypes,
				UsageCount:   seed.UsageCount,
				SuccessRate:  seed.SuccessRate,
			}
			if err := upsertPatternTx(tx, pattern); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
