package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
)

var (
	showConfigPath string
	showFlags      *configFlags
)

// configCmd prints the configuration a run with the same flags would use,
// as YAML that --config accepts.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective run configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := showFlags.buildConfig(cmd.Flags(), showConfigPath)
		if err != nil {
			logrus.Fatalf("unable to read run config; %v", err)
		}
		if err := writeConfigYAML(os.Stdout, cfg); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// writeConfigYAML validates cfg and writes it as YAML.
func writeConfigYAML(w io.Writer, cfg sim.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func init() {
	showFlags = registerConfigFlags(configCmd.Flags())
	configCmd.Flags().StringVar(&showConfigPath, "config", "", "Run configuration file to start from")
	rootCmd.AddCommand(configCmd)
}
