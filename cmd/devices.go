package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxlab/magnetpanel/internal/app"
	"github.com/maxlab/magnetpanel/internal/devicedb"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/topology"
)

var classFilter string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect the device database",
}

func openDB(ctx context.Context) *devicedb.DB {
	cfg := loadConfig()
	db, err := app.OpenDatabase(ctx, cfg.Current())
	if err != nil {
		log.Fatalf("Failed to open device database: %v", err)
	}
	return db
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var listDevicesCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		db := openDB(ctx)
		defer db.Close()

		devs, err := db.Devices(ctx, classFilter)
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		for _, d := range devs {
			fmt.Printf("%-32s %s\n", d.Name, d.Class)
		}
	},
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Count devices per class",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		db := openDB(ctx)
		defer db.Close()

		devs, err := db.Devices(ctx, "")
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		counts := map[string]int{}
		for _, d := range devs {
			counts[d.Class]++
		}
		classes := make([]string, 0, len(counts))
		for c := range counts {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		for _, c := range classes {
			fmt.Printf("%-20s %d\n", c, counts[c])
		}
	},
}

var showDeviceCmd = &cobra.Command{
	Use:   "show [device]",
	Short: "Show a device, its properties and the panel layout it opens",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		db := openDB(ctx)
		defer db.Close()

		name := tango.ModelID(args[0])
		class, err := db.ClassOf(ctx, name)
		if errors.Is(err, tango.ErrNotFound) {
			known, _ := db.Names(ctx)
			if s := topology.Suggest(string(name), known, 3); len(s) > 0 {
				log.Fatalf("Device '%s' does not exist (did you mean %s?)", name, strings.Join(s, ", "))
			}
			log.Fatalf("Device '%s' does not exist", name)
		}
		if err != nil {
			log.Fatalf("Failed to look up device: %v", err)
		}

		fmt.Printf("Device: %s\n", name)
		fmt.Printf("Class: %s\n", class)
		props, err := db.Properties(ctx, name)
		if err != nil {
			log.Fatalf("Failed to read properties: %v", err)
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, strings.Join(props[k], ", "))
		}

		layout, err := topology.NewResolver(db, db).Resolve(ctx, name)
		if err != nil {
			fmt.Printf("Layout: unavailable (%v)\n", err)
			return
		}
		fmt.Printf("Layout: %s\n", layout.Kind)
		for _, m := range layout.Models() {
			if m != "" {
				fmt.Printf("  %s\n", m)
			}
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Import devices from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmdContext(cmd)
		db := openDB(ctx)
		defer db.Close()

		f, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("Failed to open seed file: %v", err)
		}
		defer f.Close()

		n, err := db.Import(ctx, f)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported %d devices\n", n)
	},
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func init() {
	listDevicesCmd.Flags().StringVarP(&classFilter, "class", "c", "", "only devices of this class")
	devicesCmd.AddCommand(listDevicesCmd)
	devicesCmd.AddCommand(classesCmd)
	devicesCmd.AddCommand(showDeviceCmd)
	devicesCmd.AddCommand(importCmd)
	rootCmd.AddCommand(devicesCmd)
}
