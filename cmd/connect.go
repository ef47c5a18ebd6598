package cmd

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/FluidXR/questlink/internal/adb"
	"github.com/FluidXR/questlink/internal/config"
	"github.com/FluidXR/questlink/internal/connection"
	"github.com/FluidXR/questlink/internal/discovery"
	"github.com/FluidXR/questlink/internal/pairing"
)

var connectCmd = &cobra.Command{
	Use:   "connect <serial> [serial...]",
	Short: "Establish ADB connections to the given devices",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		client := adb.NewClient(cfg.ADBPath)
		d := discovery.NewDiscovery()
		if err := d.StartDiscoveryListener(); err != nil {
			return err
		}
		p := pairing.New(client, pairing.Options{
			ServiceName:     cfg.ServiceName,
			FreshnessWindow: cfg.FreshnessWindow(),
			PairTimeout:     cfg.PairTimeout(),
		})
		orch := connection.New(client, d, p, connection.Options{
			ConnectTimeout: cfg.ConnectTimeout(),
			ShowQR: func(qr string) error {
				fmt.Println("Scan this QR code to pair:")
				qrterminal.Generate(qr, qrterminal.L, os.Stdout)
				fmt.Println("Waiting for a device to scan the code...")
				return nil
			},
		})
		defer orch.Close(cmd.Context())

		batch := orch.ConnectAllDevices(cmd.Context(), args)
		for _, r := range batch.Results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "%-20s %s: %v\n", r.Serial, r.Status, r.Err)
				continue
			}
			fmt.Printf("%-20s %s\n", r.Serial, r.Status)
		}
		if !batch.AllConnected() {
			return fmt.Errorf("%d of %d devices failed to connect",
				len(batch.Results)-len(batch.Connected()), len(batch.Results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
