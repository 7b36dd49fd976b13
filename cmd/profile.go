package cmd

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/maxlab/magnetpanel/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage connection profiles",
	Long:  `Manage profiles: which device database to use, how often to poll and how long commands may take.`,
}

func printProfile(p config.Profile, indent string) {
	fmt.Printf("%sDatabase: %s\n", indent, p.Database)
	fmt.Printf("%sPolling period: %s\n", indent, p.PollingPeriod)
	fmt.Printf("%sCommand timeout: %s\n", indent, p.CommandTimeout)
	fmt.Printf("%sSeed demo devices: %t\n", indent, p.Seed)
	fmt.Printf("%sConfirm disruptive commands: %t\n", indent, p.Confirm)
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			printProfile(cfg.Profiles[name], "    ")
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		profileName := cfg.ActiveProfile
		if len(args) > 0 {
			profileName = args[0]
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		printProfile(profile, "")
		fmt.Printf("Config file: %s\n", config.Path())
	},
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// promptProfile asks for every field, starting from p.
func promptProfile(p config.Profile) config.Profile {
	dbPrompt := promptui.Prompt{
		Label:   "Device database",
		Default: p.Database,
	}
	db, err := dbPrompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	p.Database = db

	pollPrompt := promptui.Prompt{
		Label:    "Polling period",
		Default:  p.PollingPeriod.String(),
		Validate: validateDuration,
	}
	poll, err := pollPrompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	p.PollingPeriod, _ = time.ParseDuration(poll)

	timeoutPrompt := promptui.Prompt{
		Label:    "Command timeout",
		Default:  p.CommandTimeout.String(),
		Validate: validateDuration,
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	p.CommandTimeout, _ = time.ParseDuration(timeout)

	p.Seed = promptBool("Seed demo devices into an empty database", p.Seed)
	p.Confirm = promptBool("Confirm Off and StopCycle", p.Confirm)
	return p
}

func promptBool(label string, def bool) bool {
	prompt := promptui.Prompt{
		Label:   label + " (true/false)",
		Default: strconv.FormatBool(def),
		Validate: func(s string) error {
			_, err := strconv.ParseBool(s)
			return err
		},
	}
	s, err := prompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	v, _ := strconv.ParseBool(s)
	return v
}

// selectProfile returns args[0] or lets the operator pick one.
func selectProfile(cfg *config.Config, args []string, label string, skipActive bool) string {
	if len(args) > 0 {
		return args[0]
	}
	profileNames := make([]string, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		if skipActive && name == cfg.ActiveProfile {
			continue
		}
		profileNames = append(profileNames, name)
	}
	if len(profileNames) == 0 {
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: profileNames,
	}
	_, profileName, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return profileName
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			var err error
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		cfg.Profiles[profileName] = promptProfile(config.DefaultProfile())

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		profileName := selectProfile(cfg, args, "Select profile to edit", false)
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		cfg.Profiles[profileName] = promptProfile(profile)

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		profileName := selectProfile(cfg, args, "Select profile to delete", false)
		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		delete(cfg.Profiles, profileName)
		if len(cfg.Profiles) == 0 {
			cfg.Profiles["default"] = config.DefaultProfile()
		}
		if cfg.ActiveProfile == profileName {
			cfg.ActiveProfile = cfg.ProfileNames()[0]
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		profileName := selectProfile(cfg, args, "Select profile to switch to", true)
		if err := cfg.Use(profileName); err != nil {
			log.Fatalf("Cannot switch: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

var useCmd = &cobra.Command{
	Use:   "use [profile-name] [device]",
	Short: "Switch to a profile and open the panel",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Use(args[0]); err != nil {
			log.Fatalf("Cannot switch: %v", err)
		}
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}
		runPanel(cmd.Context(), args[1:], false)
	},
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
	rootCmd.AddCommand(useCmd)
}
