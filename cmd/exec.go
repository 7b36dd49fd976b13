package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/maxlab/magnetpanel/internal/simulator"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

var execCmd = &cobra.Command{
	Use:   "exec [device] [command]",
	Short: "Run a device command and print the resulting state",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		cfg := loadConfig()
		db := openDB(ctx)
		defer db.Close()

		sim := simulator.New(db, cfg.Current().PollingPeriod)
		device := tango.ModelID(args[0])

		cctx, cancel := context.WithTimeout(ctx, cfg.Current().CommandTimeout)
		defer cancel()
		if err := sim.Command(cctx, device, args[1]); err != nil {
			log.Fatalf("Command failed: %v", err)
		}
		printAttr(cctx, sim, tango.Attr(device, "State"))
		printAttr(cctx, sim, tango.Attr(device, "Status"))
	},
}

var readCmd = &cobra.Command{
	Use:   "read [attribute]...",
	Short: "Read attributes once",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		cfg := loadConfig()
		db := openDB(ctx)
		defer db.Close()

		sim := simulator.New(db, cfg.Current().PollingPeriod)
		for _, a := range args {
			printAttr(ctx, sim, tango.ModelID(a))
		}
	},
}

func printAttr(ctx context.Context, r tango.Reader, attr tango.ModelID) {
	v, err := r.Read(ctx, attr)
	if err != nil {
		log.Fatalf("Read %s failed: %v", attr, err)
	}
	format := ""
	if info, err := r.Info(ctx, attr); err == nil {
		format = info.Format
	}
	fmt.Printf("%s = %s [%s]\n", attr, widgets.FormatData(v.Data, format), v.Quality)
}

func init() {
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(readCmd)
}
