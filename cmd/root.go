package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/endorses/lexfst/cmd/build"
	"github.com/endorses/lexfst/cmd/inspect"
	"github.com/endorses/lexfst/cmd/lookup"
	"github.com/endorses/lexfst/cmd/serve"
	"github.com/endorses/lexfst/internal/pkg/logger"
	"github.com/endorses/lexfst/internal/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lexfst",
	Short: "lexfst builds and queries compact dictionaries",
	Long: fmt.Sprintf(`lexfst %s - minimal acyclic finite-state transducer dictionaries

Build a dictionary of (key, output) pairs into a compact minimal automaton,
then look keys up from the command line or serve them over HTTP.

Examples:
  lexfst build -i words.tsv -o words.fst
  lexfst lookup -d words.fst apple banana
  lexfst prefix -d words.fst hotdogs
  lexfst serve -d words.fst --watch`, version.GetShortVersion()),
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Configure(
			viper.GetString("log.format"),
			viper.GetString("log.level"),
		)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addSubCommandPalattes() {
	rootCmd.AddCommand(build.BuildCmd)
	rootCmd.AddCommand(lookup.LookupCmd)
	rootCmd.AddCommand(lookup.PrefixCmd)
	rootCmd.AddCommand(inspect.InspectCmd)
	rootCmd.AddCommand(inspect.DumpCmd)
	rootCmd.AddCommand(serve.ServeCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	addSubCommandPalattes()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lexfst/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format: json or text")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "lexfst"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("LEXFST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
