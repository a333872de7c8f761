/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	runCmd "github.com/mpapenbr/ovalrace/pkg/cmd/run"
	scriptCmd "github.com/mpapenbr/ovalrace/pkg/cmd/script"
	"github.com/mpapenbr/ovalrace/version"
)

const envPrefix = "OVR"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "ovr",
	Short:   "Headless oval racing simulation",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.ovr.yml)")

	// add commands here
	rootCmd.AddCommand(runCmd.NewRunCmd())
	rootCmd.AddCommand(scriptCmd.NewScriptCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads the config file and OVR_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ovr")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	for _, cmd := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		bindFlags(cmd, viper.GetViper())
	}
}

// envKey maps a flag to its environment variable, e.g. max-ticks to OVR_MAX_TICKS
func envKey(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// bindFlags fills flags not given on the command line from config file or env
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			if err := v.BindEnv(f.Name, envKey(f.Name)); err != nil {
				fmt.Fprintf(os.Stderr, "could not bind env var %s: %v\n", envKey(f.Name), err)
			}
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprint(v.Get(f.Name))); err != nil {
			fmt.Fprintf(os.Stderr, "could not set flag %s: %v\n", f.Name, err)
		}
	})
}
