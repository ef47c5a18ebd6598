package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FluidXR/questlink/internal/adb"
	"github.com/FluidXR/questlink/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show devices currently attached to the ADB server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		client := adb.NewClient(cfg.ADBPath)
		devices, err := client.Devices(cmd.Context())
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No devices attached.")
			return nil
		}
		for _, d := range devices {
			state := d.State
			if !d.IsOnline() {
				state = "OFFLINE"
			}
			fmt.Printf("%-24s %s  [%s] [%s]\n", d.Serial, d.Model, d.ConnType, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
