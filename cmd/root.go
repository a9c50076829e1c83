package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/backend"
	"github.com/simetry/simetry-go/pkg/backend/dirtrally2"
	"github.com/simetry/simetry-go/pkg/backend/generichttp"
	"github.com/simetry/simetry-go/pkg/backend/relay"
	"github.com/simetry/simetry-go/pkg/backend/trucksim"
	monitorCmd "github.com/simetry/simetry-go/pkg/cmd/monitor"
	"github.com/simetry/simetry-go/pkg/config"
	"github.com/simetry/simetry-go/version"
)

const envPrefix = "SIMETRY"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "simetry",
	Short:   "Uniform telemetry access for racing simulators",
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
		"config file (default is $HOME/.simetry.yml)")

	rootCmd.PersistentFlags().StringVar(&config.GenericHTTPURL,
		"generic-http-url",
		generichttp.DefaultURL,
		"URL of a generic telemetry document publisher")
	rootCmd.PersistentFlags().StringVar(&config.TruckSimulatorURL,
		"truck-simulator-url",
		trucksim.DefaultURL,
		"URL of the ETS2/ATS telemetry server")
	rootCmd.PersistentFlags().StringVar(&config.DirtRally2Addr,
		"dirt-rally2-addr",
		dirtrally2.DefaultAddr,
		"UDP listen address for DiRT Rally 2.0 telemetry")
	rootCmd.PersistentFlags().StringVar(&config.RelayURL,
		"relay-url",
		relay.DefaultURL,
		"websocket URL of a telemetry relay")
	rootCmd.PersistentFlags().StringVar(&config.RetryInterval,
		"retry-interval",
		backend.DefaultRetryInterval.String(),
		"pause between connection attempts while no sim is running")

	// add commands here
	rootCmd.AddCommand(monitorCmd.NewMonitorCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".simetry" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".simetry")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		viper.OnConfigChange(func(e fsnotify.Event) {
			fmt.Fprintln(os.Stderr, "Config file changed:", e.Name)
			bindFlags(rootCmd, viper.GetViper())
			for _, cmd := range rootCmd.Commands() {
				bindFlags(cmd, viper.GetViper())
			}
			applyLogLevel()
		})
		viper.WatchConfig()
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// applyLogLevel pushes a changed logLevel setting onto the running logger.
func applyLogLevel() {
	if config.LogLevel == "" {
		return
	}
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", config.LogLevel, err)
		return
	}
	log.Default().SetLevel(level)
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --retry-interval to SIMETRY_RETRY_INTERVAL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
