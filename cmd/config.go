package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FluidXR/questlink/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or modify QuestLink configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Printf("Config file: %s\n\n", config.ConfigPath())
		adbPath := cfg.ADBPath
		if adbPath == "" {
			adbPath = "adb (from PATH)"
		}
		fmt.Printf("ADB binary:        %s\n", adbPath)
		fmt.Printf("Service name:      %s\n", cfg.ServiceName)
		fmt.Printf("Pair timeout:      %ds\n", cfg.PairTimeoutS)
		fmt.Printf("Connect timeout:   %ds\n", cfg.ConnectTimeoutS)
		fmt.Printf("Freshness window:  %ds\n", cfg.FreshnessS)
		if len(cfg.Devices) > 0 {
			fmt.Println("\nDevices:")
			for serial, dc := range cfg.Devices {
				fmt.Printf("  %-20s %s\n", serial, dc.Nickname)
			}
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value (adb_path, service_name, pair_timeout_s, connect_timeout_s)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		key, value := args[0], args[1]
		switch key {
		case "adb_path":
			cfg.ADBPath = value
		case "service_name":
			cfg.ServiceName = value
		case "pair_timeout_s", "connect_timeout_s", "freshness_window_s":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return fmt.Errorf("%s must be a positive integer", key)
			}
			switch key {
			case "pair_timeout_s":
				cfg.PairTimeoutS = n
			case "connect_timeout_s":
				cfg.ConnectTimeoutS = n
			case "freshness_window_s":
				cfg.FreshnessS = n
			}
		default:
			return fmt.Errorf("unknown key %q", key)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <serial> <name>",
	Short: "Set a nickname for a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dc := cfg.Devices[args[0]]
		dc.Nickname = args[1]
		cfg.Devices[args[0]] = dc
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Nicknamed %s as %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configNicknameCmd)
	rootCmd.AddCommand(configCmd)
}
