package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/FluidXR/questlink/internal/adb"
	"github.com/FluidXR/questlink/internal/config"
	"github.com/FluidXR/questlink/internal/pairing"
)

var pairWait int

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Show a pairing QR code and pair devices that scan it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		p := pairing.New(adb.NewClient(cfg.ADBPath), pairing.Options{
			ServiceName:     cfg.ServiceName,
			FreshnessWindow: cfg.FreshnessWindow(),
			PairTimeout:     cfg.PairTimeout(),
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(pairWait)*time.Second)
		defer cancel()

		err = p.Pair(ctx, func(qr string) error {
			fmt.Println("Scan this QR code from Developer options > Wireless debugging > Pair device with QR code:")
			qrterminal.Generate(qr, qrterminal.L, os.Stdout)
			fmt.Println("Waiting for devices...")
			for !p.HasDeviceToPair() {
				select {
				case <-ctx.Done():
					return fmt.Errorf("no device scanned the code: %w", ctx.Err())
				case <-time.After(250 * time.Millisecond):
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println("Paired successfully.")
		return nil
	},
}

func init() {
	pairCmd.Flags().IntVarP(&pairWait, "wait", "w", 120, "Seconds to wait for a device to scan the code")
	rootCmd.AddCommand(pairCmd)
}
