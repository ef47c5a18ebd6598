package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version of QuestLink.
const Version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:     "questlink",
	Short:   "Pair and connect wireless ADB devices on the local network",
	Version: Version,
	Long: `QuestLink discovers Android devices advertising ADB services over mDNS,
drives the QR-code wireless pairing handshake, and manages TCP ADB
connections to many devices at once.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
