package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
)

var dosOutPath string // DOS output file; stdout when empty

// dosCmd rebuilds the density of states from a saved transition matrix.
var dosCmd = &cobra.Command{
	Use:   "dos <transitions-file>",
	Short: "Compute the density of states from a transitions file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(writeDOSFromTransitions(args[0], dosOutPath, os.Stdout))
	},
}

// writeDOSFromTransitions reads a transitions file and writes its DOS to
// outPath, or to stdout when outPath is empty.
func writeDOSFromTransitions(path, outPath string, stdout io.Writer) error {
	t, err := sim.ReadTransitionsFile(path)
	if err != nil {
		return err
	}
	s, err := sim.NewEstimatorFromTable(t)
	if err != nil {
		return err
	}
	logrus.Infof("Read %d energy rows from %s (max entropy state %d, min important energy %d)",
		len(t.Energies), path, s.MaxEntropyState, s.MinImportantEnergy)
	if outPath == "" {
		return s.EncodeDOS(stdout)
	}
	return s.WriteDOS(outPath)
}

func init() {
	dosCmd.Flags().StringVar(&dosOutPath, "out", "", "DOS output file (default stdout)")
	rootCmd.AddCommand(dosCmd)
}
