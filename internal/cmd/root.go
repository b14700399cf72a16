package cmd

import (
	"github.com/spf13/cobra"
)

const (
	groupWork  = "work"
	groupSetup = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "discountpick",
	Short: "build product discount lists from a remote catalog",
	Long: `discountpick - build product discount lists from a remote catalog
  - add entries, pick a product and its variants by incremental search
  - attach a free-text discount to each entry`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runEdit,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupWork, Title: "Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/discountpick/config.yaml)")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
