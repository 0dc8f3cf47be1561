package sim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Version is written to every output header. Overridden at build time with
// -ldflags "-X github.com/squarewell-sim/squarewell-sim/sim.Version=...".
var Version = "dev"

// Exit codes for unusable transition matrix input.
const (
	ExitUnparsable              = 1
	ExitWellWidthMismatch       = 232
	ExitFillingFractionMismatch = 233
	ExitNMismatch               = 234
	ExitMissingTransitionsFile  = 254
)

// ErrMalformedTransitions is wrapped by every parse failure of a transitions file.
var ErrMalformedTransitions = errors.New("malformed transitions file")

// MetadataError reports a transitions file that cannot be used for this run.
// ExitCode distinguishes the field that disagreed.
type MetadataError struct {
	Path     string
	Field    string
	Got      string // value found in the file
	Want     string // value of the running simulation
	ExitCode int
	Err      error
}

func (e *MetadataError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("transitions file %s: %s: %v", e.Path, e.Field, e.Err)
	case e.Want != "":
		return fmt.Sprintf("transitions file %s: %s in the metadata (%s) disagrees with this simulation (%s)",
			e.Path, e.Field, e.Got, e.Want)
	}
	return fmt.Sprintf("transitions file %s: bad %s %q", e.Path, e.Field, e.Got)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// TransitionsTable is the contents of a transitions file: its "# key: value"
// metadata and the count table. Counts[k][j] is the number of proposals from
// Energies[k] that would change the energy by LeastDE+j.
type TransitionsTable struct {
	Header   map[string]string
	LeastDE  int
	Energies []int
	Counts   [][]int64
}

// GreatestDE is the largest energy change with a column in the table.
func (t *TransitionsTable) GreatestDE() int {
	width := 0
	for _, row := range t.Counts {
		width = max(width, len(row))
	}
	return t.LeastDE + width - 1
}

// Write prints the column header and one row per energy level.
func (t *TransitionsTable) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	greatest := t.GreatestDE()
	fmt.Fprintf(bw, "#       \tde\n")
	fmt.Fprintf(bw, "# energy")
	for de := t.LeastDE; de <= greatest; de++ {
		fmt.Fprintf(bw, "\t%d", de)
	}
	fmt.Fprintln(bw)
	for k, e := range t.Energies {
		fmt.Fprintf(bw, "%d", e)
		for j := 0; j <= greatest-t.LeastDE; j++ {
			var c int64
			if j < len(t.Counts[k]) {
				c = t.Counts[k][j]
			}
			fmt.Fprintf(bw, "\t%d", c)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// ReadTransitionsTable parses a transitions file.
func ReadTransitionsTable(r io.Reader) (*TransitionsTable, error) {
	t := &TransitionsTable{Header: make(map[string]string)}
	haveColumns := false
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "# energy"):
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: no energy change columns", ErrMalformedTransitions, lineNo)
			}
			least, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: least de: %v", ErrMalformedTransitions, lineNo, err)
			}
			t.LeastDE = least
			haveColumns = true
		case strings.HasPrefix(line, "#"):
			if key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), ":"); ok {
				t.Header[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		default:
			if !haveColumns {
				return nil, fmt.Errorf("%w: line %d: data before the column header", ErrMalformedTransitions, lineNo)
			}
			fields := strings.Fields(line)
			e, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: energy: %v", ErrMalformedTransitions, lineNo, err)
			}
			row := make([]int64, len(fields)-1)
			for j, f := range fields[1:] {
				if row[j], err = strconv.ParseInt(f, 10, 64); err != nil {
					return nil, fmt.Errorf("%w: line %d: count: %v", ErrMalformedTransitions, lineNo, err)
				}
			}
			t.Energies = append(t.Energies, e)
			t.Counts = append(t.Counts, row)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadTransitionsFile opens and parses the transitions file at path.
func ReadTransitionsFile(path string) (*TransitionsTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MetadataError{Path: path, Field: "file", ExitCode: ExitMissingTransitionsFile, Err: err}
		}
		return nil, err
	}
	defer f.Close()
	t, err := ReadTransitionsTable(f)
	if err != nil {
		return nil, &MetadataError{Path: path, Field: "contents", ExitCode: ExitUnparsable, Err: err}
	}
	return t, nil
}

// MergeTransitionsTables sums the counts of tables that describe the same
// system. The header of the first table is kept.
func MergeTransitionsTables(tables ...*TransitionsTable) (*TransitionsTable, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no transition tables to merge")
	}
	first := tables[0]
	least, greatest := first.LeastDE, first.GreatestDE()
	sums := make(map[int]map[int]int64)
	for n, t := range tables {
		for _, key := range []string{"N", "well_width", "ff"} {
			if t.Header[key] != first.Header[key] {
				return nil, &MetadataError{Path: fmt.Sprintf("#%d", n), Field: key,
					Got: t.Header[key], Want: first.Header[key], ExitCode: metadataExitCode(key)}
			}
		}
		least, greatest = min(least, t.LeastDE), max(greatest, t.GreatestDE())
		for k, e := range t.Energies {
			if sums[e] == nil {
				sums[e] = make(map[int]int64)
			}
			for j, c := range t.Counts[k] {
				sums[e][t.LeastDE+j] += c
			}
		}
	}

	merged := &TransitionsTable{Header: make(map[string]string), LeastDE: least}
	for k, v := range first.Header {
		merged.Header[k] = v
	}
	for e := range sums {
		merged.Energies = append(merged.Energies, e)
	}
	slices.Sort(merged.Energies)
	for _, e := range merged.Energies {
		row := make([]int64, greatest-least+1)
		for de, c := range sums[e] {
			row[de-least] = c
		}
		merged.Counts = append(merged.Counts, row)
	}
	return merged, nil
}

func metadataExitCode(field string) int {
	switch field {
	case "well_width":
		return ExitWellWidthMismatch
	case "ff":
		return ExitFillingFractionMismatch
	case "N":
		return ExitNMismatch
	}
	return ExitUnparsable
}

// headerLine is one "# key: value" line; an empty key is a blank line.
type headerLine struct {
	key, value string
}

func (s *Simulation) headerLines() []headerLine {
	lnDOS, _ := s.ComputeLnDOS(TransitionDOS)
	lines := []headerLine{
		{"version", Version},
		{"seed", strconv.FormatInt(int64(s.Key), 10)},
		{"well_width", fmtG(s.WellWidth)},
		{"ff", strconv.FormatFloat(s.FillingFraction, 'g', 16, 64)},
		{"N", strconv.Itoa(s.N)},
		{"walls", strconv.Itoa(s.Cell.Walls)},
		{"cell dimensions", fmt.Sprintf("(%g, %g, %g)", s.Cell.Len[0], s.Cell.Len[1], s.Cell.Len[2])},
		{"translation_scale", fmtG(s.TranslationScale)},
		{"energy_levels", strconv.Itoa(s.EnergyLevels)},
		{"min_T", fmtG(s.MinT)},
		{"max_entropy_state", strconv.Itoa(s.MaxEntropyState)},
		{"min_important_energy", strconv.Itoa(s.MinImportantEnergy)},
		{"too_high_energy", strconv.Itoa(s.TooHighEnergy)},
		{"too_low_energy", strconv.Itoa(s.TooLowEnergy)},
		{},
	}
	switch s.Algorithm {
	case WangLandau, WLTMMC, SAD, SAMC:
		lines = append(lines, headerLine{"WL Factor", fmtG(s.WLFactor)})
	}
	return append(lines,
		headerLine{"iterations", strconv.FormatInt(s.Iteration, 10)},
		headerLine{"working moves", strconv.FormatInt(s.Moves.Working, 10)},
		headerLine{"total moves", strconv.FormatInt(s.Moves.Total, 10)},
		headerLine{"acceptance rate", fmtG(s.Moves.AcceptanceRate())},
		headerLine{},
		headerLine{"converged state", strconv.Itoa(s.ConvergedToState())},
		headerLine{"converged temperature", fmtG(s.ConvergedToTemperature(lnDOS))},
		headerLine{},
	)
}

func fmtG(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteHeader writes the run metadata block that starts every output file.
func (s *Simulation) WriteHeader(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, l := range s.headerLines() {
		if l.key == "" {
			fmt.Fprintln(bw)
			continue
		}
		fmt.Fprintf(bw, "# %s: %s\n", l.key, l.value)
	}
	return bw.Flush()
}

// TransitionsTable returns the visited rows of the transition matrix, with
// the run metadata as header.
func (s *Simulation) TransitionsTable() *TransitionsTable {
	t := &TransitionsTable{Header: make(map[string]string)}
	for _, l := range s.headerLines() {
		if l.key != "" {
			t.Header[l.key] = l.value
		}
	}
	least, greatest := 0, 0
	for e := 0; e < s.EnergyLevels; e++ {
		for de := -s.BiggestEnergyTransition; de <= s.BiggestEnergyTransition; de++ {
			if s.Transitions(e, de) != 0 {
				least, greatest = min(least, de), max(greatest, de)
			}
		}
	}
	t.LeastDE = least
	for e := 0; e < s.EnergyLevels; e++ {
		row := make([]int64, greatest-least+1)
		seen := false
		for de := least; de <= greatest; de++ {
			row[de-least] = s.Transitions(e, de)
			seen = seen || row[de-least] != 0
		}
		if seen {
			t.Energies = append(t.Energies, e)
			t.Counts = append(t.Counts, row)
		}
	}
	return t
}

// WriteTransitions writes the header and transition table to path.
func (s *Simulation) WriteTransitions(path string) error {
	return writeFile(path, func(w io.Writer) error {
		if err := s.WriteHeader(w); err != nil {
			return err
		}
		return s.TransitionsTable().Write(w)
	})
}

// CheckMetadata compares a transitions file header with this simulation.
// well_width and N must match exactly, ff within a relative 0.01/N. A file
// recorded at a higher min_T only produces a warning.
func (s *Simulation) CheckMetadata(path string, t *TransitionsTable) error {
	parse := func(field string) (float64, bool, error) {
		raw, ok := t.Header[field]
		if !ok {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, true, &MetadataError{Path: path, Field: field, Got: raw, ExitCode: ExitUnparsable}
		}
		return v, true, nil
	}

	if ww, ok, err := parse("well_width"); err != nil {
		return err
	} else if ok && ww != s.WellWidth {
		return &MetadataError{Path: path, Field: "well_width", Got: fmtG(ww), Want: fmtG(s.WellWidth),
			ExitCode: ExitWellWidthMismatch}
	}
	if ff, ok, err := parse("ff"); err != nil {
		return err
	} else if ok && math.Abs(ff-s.FillingFraction)/s.FillingFraction > 0.01/float64(s.N) {
		return &MetadataError{Path: path, Field: "ff", Got: fmtG(ff), Want: fmtG(s.FillingFraction),
			ExitCode: ExitFillingFractionMismatch}
	}
	if raw, ok := t.Header["N"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return &MetadataError{Path: path, Field: "N", Got: raw, ExitCode: ExitUnparsable}
		}
		if n != s.N {
			return &MetadataError{Path: path, Field: "N", Got: raw, Want: strconv.Itoa(s.N), ExitCode: ExitNMismatch}
		}
	}
	if minT, ok, err := parse("min_T"); err != nil {
		return err
	} else if ok && minT > s.MinT {
		logrus.Warnf("The minimum temperature in %s (%g) is larger than that requested for this simulation (%g)",
			path, minT, s.MinT)
	}
	return nil
}

// loadTransitionsTable replaces the transition matrix with t and rebuilds the
// histogram as the row sums.
func (s *Simulation) loadTransitionsTable(t *TransitionsTable) error {
	clear(s.transitions)
	for k, e := range t.Energies {
		for j, c := range t.Counts[k] {
			if c == 0 {
				continue
			}
			if err := s.AddTransitions(e, t.LeastDE+j, c); err != nil {
				return err
			}
		}
	}
	for i := range s.EnergyHistogram {
		s.EnergyHistogram[i] = 0
		for de := -s.BiggestEnergyTransition; de <= s.BiggestEnergyTransition; de++ {
			s.EnergyHistogram[i] += s.Transitions(i, de)
		}
	}
	return nil
}

// InitializeTransitionsFile starts from a saved transition matrix: after
// validating its metadata, the matrix, the histogram and the weights are all
// set from it.
func (s *Simulation) InitializeTransitionsFile(path string) error {
	t, err := ReadTransitionsFile(path)
	if err != nil {
		return err
	}
	if err := s.CheckMetadata(path, t); err != nil {
		return err
	}
	if err := s.loadTransitionsTable(t); err != nil {
		return &MetadataError{Path: path, Field: "transitions", ExitCode: ExitUnparsable, Err: err}
	}
	if err := s.UpdateWeightsUsingTransitions(1, false); err != nil {
		return err
	}
	s.FlushWeightArray()
	s.SetMinImportantEnergy(nil)
	s.InitializeCanonical(s.MinT, s.MinImportantEnergy)
	logrus.Infof("Read %d energy levels of transitions from %s (max entropy %d, min important energy %d)",
		len(t.Energies), path, s.MaxEntropyState, s.MinImportantEnergy)
	return nil
}

// NewEstimatorFromTable builds a Simulation with no balls that holds only the
// transition matrix in t, for reconstructing and writing density of states
// from saved or merged files.
func NewEstimatorFromTable(t *TransitionsTable) (*Simulation, error) {
	intField := func(key string, def int) (int, error) {
		raw, ok := t.Header[key]
		if !ok {
			return def, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &MetadataError{Field: key, Got: raw, ExitCode: ExitUnparsable}
		}
		return v, nil
	}
	floatField := func(key string, def float64) (float64, error) {
		raw, ok := t.Header[key]
		if !ok {
			return def, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, &MetadataError{Field: key, Got: raw, ExitCode: ExitUnparsable}
		}
		return v, nil
	}

	s := &Simulation{Algorithm: TMMC, TooHighEnergy: -1, TooLowEnergy: -1, now: time.Now}
	var err error
	highest := 0
	for _, e := range t.Energies {
		highest = max(highest, e)
	}
	if s.N, err = intField("N", 1); err != nil {
		return nil, err
	}
	if s.EnergyLevels, err = intField("energy_levels", highest+1); err != nil {
		return nil, err
	}
	if s.Cell.Walls, err = intField("walls", 0); err != nil {
		return nil, err
	}
	seed, err := intField("seed", 0)
	if err != nil {
		return nil, err
	}
	s.Key = NewSimulationKey(int64(seed))
	if s.WellWidth, err = floatField("well_width", 0); err != nil {
		return nil, err
	}
	if s.FillingFraction, err = floatField("ff", 0); err != nil {
		return nil, err
	}
	if s.TranslationScale, err = floatField("translation_scale", 0); err != nil {
		return nil, err
	}
	if s.MinT, err = floatField("min_T", DefaultConfig().Method.MinT); err != nil {
		return nil, err
	}
	if raw, ok := t.Header["cell dimensions"]; ok {
		if _, err := fmt.Sscanf(raw, "(%g, %g, %g)", &s.Cell.Len[0], &s.Cell.Len[1], &s.Cell.Len[2]); err != nil {
			return nil, &MetadataError{Field: "cell dimensions", Got: raw, ExitCode: ExitUnparsable}
		}
	}
	if highest >= s.EnergyLevels {
		return nil, fmt.Errorf("%w: row for energy %d with %d levels", ErrEnergyOutOfRange, highest, s.EnergyLevels)
	}
	s.BiggestEnergyTransition = max(-t.LeastDE, t.GreatestDE(), 1)
	s.allocateEstimator()
	if err := s.loadTransitionsTable(t); err != nil {
		return nil, err
	}
	s.SetMaxEntropyEnergy()
	s.SetMinImportantEnergy(nil)
	return s, nil
}
