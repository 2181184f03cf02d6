package report

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/validate"
)

// MatchReport is the validation report of one match.
type MatchReport struct {
	MatchID         string `yaml:"match_id"`
	validate.Report `yaml:",inline"`
}

// ValidationDocument is the YAML validation report of a dataset.
type ValidationDocument struct {
	TotalRows int           `yaml:"total_rows"`
	ValidRows int           `yaml:"valid_rows"`
	Matches   []MatchReport `yaml:"matches"`
}

// NewValidationDocument collects the reports of tables.
func NewValidationDocument(tables []aggregator.MatchTable) ValidationDocument {
	var doc ValidationDocument
	for _, t := range tables {
		doc.TotalRows += t.Table.Report.TotalRounds
		doc.ValidRows += t.Table.Report.ValidRounds
		doc.Matches = append(doc.Matches, MatchReport{MatchID: t.MatchID, Report: t.Table.Report})
	}
	return doc
}

// WriteYAML encodes doc.
func WriteYAML(w io.Writer, doc ValidationDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode validation report: %w", err)
	}
	return enc.Close()
}

// WriteYAMLFile writes doc to path.
func WriteYAMLFile(path string, doc ValidationDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteYAML(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
