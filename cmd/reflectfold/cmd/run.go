package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mpyw/reflectfold"
	"github.com/mpyw/reflectfold/internal/chain"
	"github.com/mpyw/reflectfold/internal/debug"
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("output", "o", "", "file to write (directory with several inputs, default stdout)")
	runCmd.Flags().Bool("diff", false, "print a unified diff instead of the rewritten program")
	runCmd.Flags().String("report", "", "write a YAML report to this file")
	runCmd.Flags().String("dot", "", "write DOT graphs of --debug methods to this directory")
	runCmd.Flags().Bool("dry-run", false, "analyze without rewriting")
	runCmd.MarkFlagDirname("dot")

	viper.BindPFlag("run.output", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("run.diff", runCmd.Flags().Lookup("diff"))
	viper.BindPFlag("run.report", runCmd.Flags().Lookup("report"))
	viper.BindPFlag("run.dot", runCmd.Flags().Lookup("dot"))
	viper.BindPFlag("run.dry-run", runCmd.Flags().Lookup("dry-run"))
}

// fileReports is the YAML document written by --report.
type fileReports struct {
	Files  []*reflectfold.Report `yaml:"files"`
	Totals reflectfold.Totals    `yaml:"totals"`
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <FILE>...",
	Short: "Rewrite reflective call chains in IR files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := viper.GetString("run.output")
		dotDir := viper.GetString("run.dot")
		filter := viper.GetString("debug")
		if dotDir != "" && filter == "" {
			filter = "."
		}
		if output != "" && len(args) > 1 {
			if err := os.MkdirAll(output, 0o750); err != nil {
				return errors.Wrap(err, "create output directory")
			}
		}

		var all fileReports
		for _, path := range args {
			var collector *debug.Collector
			if dotDir != "" {
				collector = debug.NewCollector()
			}
			p, err := newPass(filter, collector, viper.GetBool("run.dry-run"))
			if err != nil {
				return err
			}

			src, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read input")
			}
			out, rep, err := p.Rewrite(runContext(cmd), path, src)
			if err != nil {
				return err
			}
			all.Files = append(all.Files, rep)
			all.Totals.Add(rep.Totals)

			log.WithFields(log.Fields{
				"file":          path,
				"methods":       rep.Totals.Methods,
				"rewritten":     rep.Totals.Rewritten,
				"constructions": rep.Totals.Constructions,
				"invocations":   rep.Totals.Invocations,
				"removed":       rep.Totals.Removed,
			}).Info("Processed")

			if err := writeResult(cmd.OutOrStdout(), path, output, len(args) > 1, src, out); err != nil {
				return err
			}
			if collector != nil {
				if err := writeDOTs(dotDir, path, collector.Snapshots()); err != nil {
					return err
				}
			}
		}

		if reportPath := viper.GetString("run.report"); reportPath != "" {
			data, err := yaml.Marshal(all)
			if err != nil {
				return errors.Wrap(err, "marshal report")
			}
			if err := os.WriteFile(reportPath, data, 0o644); err != nil {
				return errors.Wrap(err, "write report")
			}
		}
		return nil
	},
}

// writeResult writes the rewritten program of one input, or its diff.
func writeResult(stdout io.Writer, path, output string, multi bool, src, out []byte) error {
	if viper.GetBool("run.diff") {
		diff := udiff.Unified(path, path+".rewritten", string(src), string(out))
		if viper.GetBool("color") {
			diff = colorizeDiff(diff)
		}
		_, err := io.WriteString(stdout, diff)
		return err
	}
	if output == "" {
		_, err := io.Copy(stdout, bytes.NewReader(out))
		return err
	}
	dst := output
	if multi {
		dst = filepath.Join(output, filepath.Base(path))
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return errors.Wrap(err, "write output")
	}
	log.WithField("path", dst).Debug("Wrote rewritten program")
	return nil
}

// writeDOTs writes one DOT file per snapshot that holds a chain.
func writeDOTs(dir, input string, snapshots []*chain.Snapshot) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "create DOT directory")
	}
	for _, s := range snapshots {
		if s.Roots() == 0 {
			continue
		}
		dst := filepath.Join(dir, dotFileName(input, s.Method))
		f, err := os.Create(dst)
		if err != nil {
			return errors.Wrap(err, "create DOT file")
		}
		if err := debug.WriteDOT(f, s); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s", dst)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", dst)
		}
		log.WithField("path", dst).Info("Wrote graph")
	}
	return nil
}

// dotFileName names the DOT file of method found in input.
func dotFileName(input, method string) string {
	base := filepath.Base(input)
	base = base[:len(base)-len(filepath.Ext(base))]
	return fmt.Sprintf("%s.%s.dot", base, sanitize(method))
}

// runContext returns the command context, falling back to Background when
// the command was executed without one.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
