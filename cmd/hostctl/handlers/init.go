package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/hostctl/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard asks for the first host.
	runWizard = config.RunWizard

	// saveConfig writes the inventory to a file.
	saveConfig = config.Save
)

// Init runs the inventory wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := result.ToConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := saveConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Println()
	fmt.Println("hostctl - runbooks over SSH")
	fmt.Println("===========================")
	fmt.Println()
	fmt.Println("This wizard adds your first host to the inventory.")
	fmt.Println("Add more hosts later by editing the file.")
	fmt.Println()
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	h := cfg.Hosts[0]

	fmt.Println()
	fmt.Println("Inventory saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()
	fmt.Println("Host")
	fmt.Println("----")
	fmt.Printf("  Name:    %s\n", h.Name)
	fmt.Printf("  Address: %s\n", h.Address)
	fmt.Printf("  User:    %s\n", h.User)
	switch {
	case h.KeyFile != "":
		fmt.Printf("  Auth:    key file %s\n", h.KeyFile)
	case h.PasswordEnv != "":
		fmt.Printf("  Auth:    password from $%s\n", h.PasswordEnv)
	}
	if h.InsecureIgnoreHostKey {
		fmt.Println("  Host key: not verified")
	}
	fmt.Println()
	fmt.Println("Next steps:")
	if h.PasswordEnv != "" {
		fmt.Printf("  export %s=...\n", h.PasswordEnv)
	}
	fmt.Printf("  hostctl check %s\n", h.Name)
}
