package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
)

var (
	mergeOutPath string // merged transitions file; stdout when empty
	mergeDOSPath string // optional DOS of the merged matrix
)

// mergeCmd sums the transition matrices of runs of the same system.
var mergeCmd = &cobra.Command{
	Use:   "merge <transitions-file>...",
	Short: "Merge transitions files from independent runs of one system",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(mergeTransitionsFiles(args, mergeOutPath, mergeDOSPath, os.Stdout))
	},
}

func mergeTransitionsFiles(paths []string, outPath, dosPath string, stdout io.Writer) error {
	tables := make([]*sim.TransitionsTable, 0, len(paths))
	for _, p := range paths {
		t, err := sim.ReadTransitionsFile(p)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	merged, err := sim.MergeTransitionsTables(tables...)
	if err != nil {
		return err
	}
	s, err := sim.NewEstimatorFromTable(merged)
	if err != nil {
		return err
	}
	if outPath == "" {
		if err := s.WriteHeader(stdout); err != nil {
			return err
		}
		if err := s.TransitionsTable().Write(stdout); err != nil {
			return err
		}
	} else if err := s.WriteTransitions(outPath); err != nil {
		return err
	}
	if dosPath != "" {
		return s.WriteDOS(dosPath)
	}
	return nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeOutPath, "out", "", "Merged transitions file (default stdout)")
	mergeCmd.Flags().StringVar(&mergeDOSPath, "dos", "", "Also write the DOS of the merged matrix")
	rootCmd.AddCommand(mergeCmd)
}
