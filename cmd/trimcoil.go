package cmd

import (
	"github.com/spf13/cobra"
)

var trimCoilCmd = &cobra.Command{
	Use:   "trimcoil [device]",
	Short: "Open the trim coil panel",
	Long:  `Open the panel of a trim coil circuit, with its power supply and switchboard.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPanel(cmd.Context(), args, true)
	},
}

func init() {
	rootCmd.AddCommand(trimCoilCmd)
}
