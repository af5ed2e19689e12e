// Package cmd implements the reflectfold command line.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpyw/reflectfold"
	"github.com/mpyw/reflectfold/internal/chain"
	"github.com/mpyw/reflectfold/internal/debug"
)

var (
	cfgFile string
	// Verbose enables debug logging
	Verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "reflectfold",
	Short:         "Rewrite reflective call chains into direct calls",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.reflectfold.yaml or $HOME/.reflectfold.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().IntP("workers", "j", 0, "methods visited in parallel (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().String("strategy", chain.DefaultStrategy, "member selection ("+strings.Join(chain.StrategyNames(), ", ")+")")
	rootCmd.PersistentFlags().String("debug", "", "dump reflection graphs of methods matching this regex")
	rootCmd.PersistentFlags().Bool("color", false, "colorize output")
	rootCmd.PersistentFlags().Bool("drop-wrapped-values", false, "drop newInstance/invoke calls nested in another reflective call from its operands")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("strategy", rootCmd.PersistentFlags().Lookup("strategy"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindEnv("color", "CLICOLOR")
	viper.BindPFlag("drop-wrapped-values", rootCmd.PersistentFlags().Lookup("drop-wrapped-values"))

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".reflectfold")
	}

	viper.SetEnvPrefix("reflectfold")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newPass builds a pass from the bound flags. A non-nil collector receives
// graph snapshots of the methods matching filter.
func newPass(filter string, collector *debug.Collector, dryRun bool) (*reflectfold.Pass, error) {
	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	opts := reflectfold.Options{
		Workers:     viper.GetInt("workers"),
		Strategy:    viper.GetString("strategy"),
		DebugFilter: filter,
		Collector:   collector,
		Logger:      log.Log,
		DryRun:      dryRun,

		DropWrappedValues: viper.GetBool("drop-wrapped-values"),
	}
	if viper.GetString("debug") != "" {
		opts.DebugOut = os.Stderr
	}
	return reflectfold.New(opts)
}
