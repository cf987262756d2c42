package main

import (
	"fmt"
	"time"

	"github.com/mastercactapus/lasersend/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lasersend [file]",
	Short: "Preview and stream G-code to a laser cutter",
	Long: `lasersend sends a G-code program to the laser controller one line at a time,
waiting for the controller to report ready before every line.

Without a subcommand it starts an interactive prompt.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var file string
		if len(args) > 0 {
			file = args[0]
		}
		return a.menu(cmd.Context(), file)
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Config file (default $XDG_CONFIG_HOME/lasersend/config.toml)")
	f.String("transport", "", "Transport to the controller: serial or spjs")
	f.String("port", "", "Serial port path (or name if using SPJS)")
	f.Int("baud", 0, "Serial baud rate")
	f.Duration("timeout", 0, "Read timeout for each ready poll")
	f.Int("retries", -1, "Polls per line before giving up (0 polls forever)")
	f.String("spjs", "", "Websocket URL of the SPJS server to use")
}

// loadConfig reads the config file and applies any flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if f.Changed("transport") {
		cfg.Transport, _ = f.GetString("transport")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetString("port")
	}
	if f.Changed("baud") {
		cfg.Baud, _ = f.GetInt("baud")
	}
	if f.Changed("timeout") {
		var d time.Duration
		d, _ = f.GetDuration("timeout")
		cfg.Timeout = config.Duration{Duration: d}
	}
	if f.Changed("retries") {
		cfg.Retries, _ = f.GetInt("retries")
	}
	if f.Changed("spjs") {
		cfg.SPJS, _ = f.GetString("spjs")
		if !f.Changed("transport") {
			cfg.Transport = config.TransportSPJS
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path, _ = config.Path()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
		return config.Write(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
