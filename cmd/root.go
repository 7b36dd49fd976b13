package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/maxlab/magnetpanel/internal/app"
	"github.com/maxlab/magnetpanel/internal/config"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/topology"
)

var rootCmd = &cobra.Command{
	Use:   "magnetpanel [device]",
	Short: "Terminal control panel for accelerator magnets",
	Long: `magnetpanel opens a tabbed control panel for a magnet or magnet circuit:
its circuit, power supply, magnets, cycling and field tabs. Without a device
it asks for one.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPanel(cmd.Context(), args, false)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runPanel(ctx context.Context, args []string, trim bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := loadConfig()

	var device tango.ModelID
	if len(args) > 0 {
		device = tango.ModelID(args[0])
	} else {
		device = pickDevice(ctx, cfg, trim)
	}

	// logging goes to the log file from here on
	application, err := app.NewApplication(ctx, cfg, app.Options{Device: device, Trim: trim})
	if err != nil {
		fatalf("Failed to open %s: %v", device, err)
	}

	err = application.Start(ctx)
	application.Stop()
	if err != nil {
		fatalf("Application error: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// pickDevice lets the operator choose among the devices the layout can
// show.
func pickDevice(ctx context.Context, cfg *config.Config, trim bool) tango.ModelID {
	db, err := app.OpenDatabase(ctx, cfg.Current())
	if err != nil {
		log.Fatalf("Failed to open device database: %v", err)
	}
	defer db.Close()

	classes := []string{topology.ClassMagnet, topology.ClassMagnetCircuit}
	if trim {
		classes = []string{topology.ClassTrimCircuit}
	}
	var items []string
	for _, class := range classes {
		devs, err := db.Devices(ctx, class)
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		for _, d := range devs {
			items = append(items, string(d.Name))
		}
	}
	if len(items) == 0 {
		log.Fatalf("No devices in %s; import some with 'magnetpanel devices import'", cfg.Current().Database)
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Select device (profile %s)", cfg.ActiveProfile),
		Items: items,
		Size:  12,
		Searcher: func(input string, index int) bool {
			return containsFold(items[index], input)
		},
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return tango.ModelID(name)
}
