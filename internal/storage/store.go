package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/symplot/internal/figure"
)

const (
	metadataFile = "metadata.json"
	curvesFile   = "curves.csv"
)

var ErrNoRun = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// CurveMetadata describes one stored curve; its points live in
// curves.csv.
type CurveMetadata struct {
	Index  int          `json:"index"`
	Style  figure.Style `json:"style"`
	Axis   string       `json:"axis"`
	Points int          `json:"points"`
}

type RunMetadata struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Output    string          `json:"output"`
	Timestamp time.Time       `json:"timestamp"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
	Secondary bool            `json:"secondary"`
	Axes      figure.Axes     `json:"axes"`
	Curves    []CurveMetadata `json:"curves"`
	Field     *figure.Quiver  `json:"field,omitempty"`
	Failures  []string        `json:"failures,omitempty"`
}

// Run is what the store needs to persist a request's outcome.
type Run struct {
	Type     string
	Output   string
	Elapsed  time.Duration
	Figure   *figure.Figure
	Failures []string
}

// runID derives a directory name from the output file name and the
// current time, adding a counter when the name is taken.
func (s *Store) runID(output string) string {
	base := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	if base == "" || base == "." {
		base = "run"
	}
	id := fmt.Sprintf("%s_%d", base, time.Now().Unix())
	candidate := id
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(s.baseDir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
}

// Save writes the run to <base>/<id>/metadata.json and curves.csv and
// returns the id.
func (s *Store) Save(run Run) (string, error) {
	runID := s.runID(run.Output)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	fig := run.Figure
	meta := RunMetadata{
		ID:        runID,
		Type:      run.Type,
		Output:    run.Output,
		Timestamp: time.Now(),
		Elapsed:   run.Elapsed,
		Secondary: fig.HasSecondary(),
		Axes:      fig.Axes,
		Field:     fig.Field(),
		Failures:  run.Failures,
	}
	curves := fig.Curves()
	for i, c := range curves {
		meta.Curves = append(meta.Curves, CurveMetadata{Index: i, Style: c.Style, Axis: c.Axis.String(), Points: c.Len()})
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, curvesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"curve", "label", "axis", "x", "y"}); err != nil {
		return "", err
	}
	for i, c := range curves {
		for j := range c.X {
			row := []string{
				strconv.Itoa(i),
				c.Style.Label,
				c.Axis.String(),
				strconv.FormatFloat(c.X[j], 'g', -1, 64),
				strconv.FormatFloat(c.Y[j], 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns the stored runs, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadCurves reads the stored points, one x and one y slice per curve.
func (s *Store) LoadCurves(runID string) ([][]float64, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, curvesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 5

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	var xs, ys [][]float64
	for i := 1; i < len(records); i++ {
		record := records[i]
		idx, err := strconv.Atoi(record[0])
		if err != nil || idx < 0 {
			return nil, nil, fmt.Errorf("storage: %s line %d: bad curve index %q", curvesFile, i+1, record[0])
		}
		x, errX := strconv.ParseFloat(record[3], 64)
		y, errY := strconv.ParseFloat(record[4], 64)
		if errX != nil || errY != nil {
			return nil, nil, fmt.Errorf("storage: %s line %d: bad point", curvesFile, i+1)
		}
		for len(xs) <= idx {
			xs = append(xs, nil)
			ys = append(ys, nil)
		}
		xs[idx] = append(xs[idx], x)
		ys[idx] = append(ys[idx], y)
	}

	return xs, ys, nil
}

// LoadFigure rebuilds the figure of a stored run.
func (s *Store) LoadFigure(runID string) (*figure.Figure, *RunMetadata, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	xs, ys, err := s.LoadCurves(runID)
	if err != nil {
		return nil, nil, err
	}

	fig := figure.New()
	fig.Axes = meta.Axes
	if meta.Secondary {
		fig.EnableSecondary()
	}
	for _, c := range meta.Curves {
		if c.Index >= len(xs) {
			return nil, nil, fmt.Errorf("storage: run %s: curve %d has no points", runID, c.Index)
		}
		axis := figure.Primary
		if c.Axis == figure.Secondary.String() {
			axis = figure.Secondary
		}
		if err := fig.AddCurve(xs[c.Index], ys[c.Index], c.Style, axis); err != nil {
			return nil, nil, fmt.Errorf("storage: run %s: %w", runID, err)
		}
	}
	fig.SetField(meta.Field)
	return fig, meta, nil
}
