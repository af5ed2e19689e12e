package cmd

import (
	"os"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpyw/reflectfold/internal/debug"
)

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("output", "o", ".", "directory to write DOT files to")
	graphCmd.MarkFlagDirname("output")

	viper.BindPFlag("graph.output", graphCmd.Flags().Lookup("output"))
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <FILE>...",
	Short: "Write the reflection graphs of IR files as DOT",
	Long: `Build the reflection graph of every method without rewriting and write
one DOT file per method holding at least one chain. --debug restricts the
methods and also dumps the graphs as trees to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := viper.GetString("debug")
		if filter == "" {
			filter = "."
		}
		dir := viper.GetString("graph.output")

		for _, path := range args {
			collector := debug.NewCollector()
			p, err := newPass(filter, collector, true)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read input")
			}
			if _, _, err := p.Rewrite(runContext(cmd), path, src); err != nil {
				return err
			}

			snapshots := collector.Snapshots()
			log.WithFields(log.Fields{
				"file":    path,
				"methods": len(snapshots),
			}).Info("Built graphs")
			if err := writeDOTs(dir, path, snapshots); err != nil {
				return err
			}
		}
		return nil
	},
}
