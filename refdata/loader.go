package refdata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/logging"
)

// Files read by DirLoader. Each is tab separated, one record per line;
// blank lines and lines starting with '#' are ignored.
const (
	MedicationsFile  = "medications.txt"  // name
	ConditionsFile   = "conditions.txt"   // name
	SamplesFile      = "samples.txt"      // text
	InteractionsFile = "interactions.txt" // id, drugA, drugB, severity, description, recommendation
	DosagesFile      = "dosages.txt"      // drug, dosage, frequency, ageGroup, notes
	AlternativesFile = "alternatives.txt" // original, alternative, reason, effectiveness
)

const maxLineSize = 1024 * 1024

// DirLoader reads a reference dataset from a directory. Files may be UTF-8
// or ISO-8859-1. The vocabularies are required; the other files are optional.
type DirLoader struct {
	Dir string
}

// NewDirLoader returns a loader for dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

func (l *DirLoader) Source() string {
	return "dir:" + l.Dir
}

// lineStats counts what a parse skipped, for the debug log.
type lineStats struct {
	lines          int
	skippedColumns int
}

type parsed struct {
	file    string
	records [][]string
	stats   lineStats
	err     error
}

// Load reads all files concurrently and assembles the dataset.
func (l *DirLoader) Load() (entities.ReferenceData, error) {
	tables := []struct {
		file     string
		columns  int
		required bool
	}{
		{MedicationsFile, 1, true},
		{ConditionsFile, 1, true},
		{SamplesFile, 0, false},
		{InteractionsFile, 6, false},
		{DosagesFile, 5, false},
		{AlternativesFile, 4, false},
	}

	results := make([]parsed, len(tables))
	var wg sync.WaitGroup
	for i, table := range tables {
		wg.Go(func() {
			records, stats, err := l.readTable(table.file, table.columns, table.required)
			results[i] = parsed{file: table.file, records: records, stats: stats, err: err}
		})
	}
	wg.Wait()

	var errs []error
	byFile := make(map[string][][]string, len(results))
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if r.stats.skippedColumns > 0 {
			logging.Warn("Skipped reference lines with missing columns",
				"file", r.file, "skipped", r.stats.skippedColumns, "lines", r.stats.lines)
		}
		byFile[r.file] = r.records
	}
	if err := errors.Join(errs...); err != nil {
		return entities.ReferenceData{}, err
	}

	ref := entities.ReferenceData{
		Medications: firstColumn(byFile[MedicationsFile]),
		Conditions:  firstColumn(byFile[ConditionsFile]),
		SampleTexts: firstColumn(byFile[SamplesFile]),
		Analysis: entities.AnalysisResult{
			Interactions:          []entities.InteractionRecord{},
			DosageRecommendations: []entities.DosageRecommendation{},
			Alternatives:          []entities.AlternativeSuggestion{},
		},
	}
	for _, f := range byFile[InteractionsFile] {
		ref.Analysis.Interactions = append(ref.Analysis.Interactions, entities.InteractionRecord{
			ID:             f[0],
			DrugA:          f[1],
			DrugB:          f[2],
			Severity:       entities.Severity(strings.ToLower(f[3])),
			Description:    f[4],
			Recommendation: f[5],
		})
	}
	for _, f := range byFile[DosagesFile] {
		ref.Analysis.DosageRecommendations = append(ref.Analysis.DosageRecommendations, entities.DosageRecommendation{
			Drug:      f[0],
			Dosage:    f[1],
			Frequency: f[2],
			AgeGroup:  f[3],
			Notes:     f[4],
		})
	}
	for _, f := range byFile[AlternativesFile] {
		ref.Analysis.Alternatives = append(ref.Analysis.Alternatives, entities.AlternativeSuggestion{
			Original:      f[0],
			Alternative:   f[1],
			Reason:        f[2],
			Effectiveness: f[3],
		})
	}

	logging.Debug("Reference data loaded", "source", l.Source(),
		"medications", len(ref.Medications), "conditions", len(ref.Conditions),
		"interactions", len(ref.Analysis.Interactions))
	return ref, nil
}

// readTable returns the records of one file, each with exactly columns
// trimmed fields. Lines with fewer fields are skipped and counted. With zero
// columns every line is kept whole as a single field.
func (l *DirLoader) readTable(name string, columns int, required bool) ([][]string, lineStats, error) {
	var stats lineStats

	raw, err := os.ReadFile(filepath.Join(l.Dir, name))
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, stats, nil
		}
		return nil, stats, fmt.Errorf("failed to read %s: %w", name, err)
	}

	scanner := bufio.NewScanner(decode(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records [][]string
	for scanner.Scan() {
		stats.lines++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if columns == 0 {
			records = append(records, []string{strings.TrimSpace(line)})
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < columns {
			stats.skippedColumns++
			continue
		}
		fields = fields[:columns]
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		records = append(records, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanner error in %s: %w", name, err)
	}
	return records, stats, nil
}

// decode returns a UTF-8 reader over raw, converting from ISO-8859-1 when raw
// is not valid UTF-8.
func decode(raw []byte) io.Reader {
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw))
}

func firstColumn(records [][]string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r[0])
	}
	return out
}
