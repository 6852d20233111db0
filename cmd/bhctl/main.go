package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "bhctl",
		Short:         "Boarding-house administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")

	roomsCmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage the room inventory",
	}
	roomsCmd.AddCommand(ImportRoomsCmd())

	rootCmd.AddCommand(
		MigrateCmd(),
		RentRunCmd(),
		PreviewCmd(),
		TokenCmd(),
		roomsCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
