package sim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/phil-mansfield/table"
	"gonum.org/v1/gonum/floats"
)

// movieCounters holds the next frame number of each movie file sequence.
type movieCounters struct {
	transitions, dos, lnw int
}

// writeFile creates path, calls write, and closes the file on every path.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create file %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// nextMovieFrame returns the first unused file name of format, starting at
// *count. Two runs writing the same movie interleave their frames.
func nextMovieFrame(format string, count *int) string {
	for {
		name := fmt.Sprintf(format, *count)
		*count++
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			return name
		}
	}
}

// WriteTransitionsFiles saves every configured output: the transitions, DOS
// and weights files, and the next frame of each configured movie. Files
// without a configured name are skipped.
func (s *Simulation) WriteTransitionsFiles() error {
	out := s.Output
	if out.TransitionsFile != "" {
		if err := s.WriteTransitions(out.TransitionsFile); err != nil {
			return err
		}
	}
	if out.DOSFile != "" {
		if err := s.WriteDOS(out.DOSFile); err != nil {
			return err
		}
	}
	if out.LnWeightsFile != "" {
		if err := s.WriteLnWeights(out.LnWeightsFile); err != nil {
			return err
		}
	}
	if out.TransitionsMovieFormat != "" {
		if err := s.WriteTransitions(nextMovieFrame(out.TransitionsMovieFormat, &s.movies.transitions)); err != nil {
			return err
		}
	}
	if out.DOSMovieFormat != "" {
		if err := s.WriteDOS(nextMovieFrame(out.DOSMovieFormat, &s.movies.dos)); err != nil {
			return err
		}
	}
	if out.LnWeightsMovieFormat != "" {
		if err := s.WriteLnWeights(nextMovieFrame(out.LnWeightsMovieFormat, &s.movies.lnw)); err != nil {
			return err
		}
	}
	return nil
}

// dosMode is the reconstruction written to DOS files: the weights for the
// methods whose weights converge to the DOS, the transition matrix otherwise.
func (s *Simulation) dosMode() DOSMode {
	switch s.Algorithm {
	case SAD, SAMC, WangLandau:
		return WeightsDOS
	}
	return TransitionDOS
}

// WriteDOS writes the header and a table of energy, ln DOS relative to its
// maximum, and pessimistic samples. When the DOS comes from the weights, the
// transition matrix DOS is added as a fourth column.
func (s *Simulation) WriteDOS(path string) error {
	return writeFile(path, s.EncodeDOS)
}

// EncodeDOS writes what WriteDOS puts in a file to w.
func (s *Simulation) EncodeDOS(w io.Writer) error {
	if err := s.WriteHeader(w); err != nil {
		return err
	}
	return s.writeDOSTable(w)
}

func (s *Simulation) writeDOSTable(w io.Writer) error {
	mode := s.dosMode()
	lnDOS, err := s.ComputeLnDOS(mode)
	if err != nil {
		return err
	}
	lnDOSTM, err := s.ComputeLnDOS(TransitionDOS)
	if err != nil {
		return err
	}
	floats.AddConst(-floats.Max(lnDOS), lnDOS)
	floats.AddConst(-floats.Max(lnDOSTM), lnDOSTM)

	bw := bufio.NewWriter(w)
	if mode != TransitionDOS {
		fmt.Fprintf(bw, "# energy\tlndos\tps\tlndos_tm\n")
	} else {
		fmt.Fprintf(bw, "# energy\tlndos\tps\n")
	}
	for i := range lnDOS {
		if mode != TransitionDOS {
			fmt.Fprintf(bw, "%d\t%g\t%d\t%g\n", i, lnDOS[i], s.PessimisticSamples[i], lnDOSTM[i])
		} else {
			fmt.Fprintf(bw, "%d\t%g\t%d\n", i, lnDOS[i], s.PessimisticSamples[i])
		}
	}
	return bw.Flush()
}

// WriteLnWeights writes the header and the log weights shifted so the
// smallest is 0.
func (s *Simulation) WriteLnWeights(path string) error {
	return writeFile(path, func(w io.Writer) error {
		if err := s.WriteHeader(w); err != nil {
			return err
		}
		lnw := make([]float64, len(s.LnEnergyWeights))
		copy(lnw, s.LnEnergyWeights)
		floats.AddConst(-floats.Min(lnw), lnw)

		bw := bufio.NewWriter(w)
		fmt.Fprintf(bw, "# energy\tlnw\n")
		for i, v := range lnw {
			fmt.Fprintf(bw, "%d\t%g\n", i, v)
		}
		return bw.Flush()
	})
}

// ReadEnergyColumn reads a two or more column file of energy and value, as
// written by WriteDOS and WriteLnWeights, and returns the values indexed by
// energy. col selects the value column (1 = ln DOS or ln weight).
func ReadEnergyColumn(path string, col int) ([]float64, error) {
	cols, err := table.ReadTable(path, []int{0, col}, nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	energies, values := cols[0], cols[1]
	if len(energies) == 0 {
		return nil, fmt.Errorf("reading %s: no rows", path)
	}
	out := make([]float64, int(floats.Max(energies))+1)
	for k, e := range energies {
		if e < 0 {
			return nil, fmt.Errorf("reading %s: negative energy %g", path, e)
		}
		out[int(e)] = values[k]
	}
	return out, nil
}

// LoadLnWeights replaces the log weights with those in a weights file.
// Levels beyond the end of the file continue with Boltzmann weights at MinT.
func (s *Simulation) LoadLnWeights(path string) error {
	lnw, err := ReadEnergyColumn(path, 1)
	if err != nil {
		return err
	}
	if len(lnw) > s.EnergyLevels {
		return fmt.Errorf("%w: weights file %s has %d levels, simulation %d",
			ErrEnergyOutOfRange, path, len(lnw), s.EnergyLevels)
	}
	clear(s.LnEnergyWeights)
	copy(s.LnEnergyWeights, lnw)
	s.InitializeCanonical(s.MinT, len(lnw)-1)
	return nil
}
