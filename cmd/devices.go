package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FluidXR/questlink/internal/config"
	"github.com/FluidXR/questlink/internal/discovery"
)

var devicesScan int

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices advertising wireless ADB on the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		d := discovery.NewDiscovery()
		if err := d.StartDiscoveryListener(); err != nil {
			return err
		}
		defer d.StopDiscoveryListener()

		fmt.Printf("Scanning for %d seconds...\n", devicesScan)
		time.Sleep(time.Duration(devicesScan) * time.Second)

		online := d.OnlineDevices()
		offline := d.OfflineDevices()
		if len(online) == 0 && len(offline) == 0 {
			fmt.Println("No devices found.")
			return nil
		}

		for serial, info := range online {
			nickname := ""
			if dc, ok := cfg.Devices[serial]; ok && dc.Nickname != "" {
				nickname = fmt.Sprintf(" (%s)", dc.Nickname)
			}
			fmt.Printf("%-20s %s  [online]%s\n", serial, info.Addr(), nickname)
		}
		for serial, info := range offline {
			fmt.Printf("%-20s %s  [offline]\n", serial, info.Addr())
		}
		return nil
	},
}

func init() {
	devicesCmd.Flags().IntVarP(&devicesScan, "scan", "s", 5, "Seconds to scan for advertisements")
	rootCmd.AddCommand(devicesCmd)
}
