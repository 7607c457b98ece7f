package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// Authentication methods offered by the wizard.
const (
	AuthKey      = "key"
	AuthPassword = "password"
)

// WizardResult holds the operator's answers from the init wizard.
type WizardResult struct {
	Name        string
	Address     string
	Port        string
	User        string
	Auth        string
	KeyFile     string
	PasswordEnv string
	Insecure    bool
}

// RunWizard asks for one host and returns the answers.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Port:        strconv.Itoa(DefaultPort),
		User:        "root",
		Auth:        AuthKey,
		KeyFile:     "~/.ssh/id_ed25519",
		PasswordEnv: "HOSTCTL_SSH_PASSWORD",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host name").
				Description("Short name used on the command line (e.g. prod)").
				Placeholder("prod").
				Value(&result.Name).
				Validate(validateHostName),
			huh.NewInput().
				Title("Address").
				Description("IP address or DNS name").
				Placeholder("203.0.113.10").
				Value(&result.Address).
				Validate(validateRequired("address")),
			huh.NewInput().
				Title("Port").
				Value(&result.Port).
				Validate(validatePort),
			huh.NewInput().
				Title("User").
				Value(&result.User).
				Validate(validateRequired("user")),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Authentication").
				Options(
					huh.NewOption("Private key file", AuthKey),
					huh.NewOption("Password from environment variable", AuthPassword),
				).
				Value(&result.Auth),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Key file").
				Value(&result.KeyFile).
				Validate(validateRequired("key file")),
		).WithHideFunc(func() bool { return result.Auth != AuthKey }),

		huh.NewGroup(
			huh.NewInput().
				Title("Password variable").
				Description("hostctl reads the password from this variable at run time").
				Value(&result.PasswordEnv).
				Validate(validateRequired("variable name")),
		).WithHideFunc(func() bool { return result.Auth != AuthPassword }),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Skip host key verification?").
				Description("Only for throwaway hosts. Otherwise add the key to known_hosts with ssh-keyscan.").
				Value(&result.Insecure),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard answers into a one-host inventory.
func (r *WizardResult) ToConfig() *Config {
	port, _ := strconv.Atoi(r.Port)
	host := Host{
		Name:                  strings.ToLower(r.Name),
		Address:               r.Address,
		Port:                  port,
		User:                  r.User,
		InsecureIgnoreHostKey: r.Insecure,
	}
	if r.Auth == AuthPassword {
		host.PasswordEnv = r.PasswordEnv
	} else {
		host.KeyFile = r.KeyFile
	}

	return &Config{Hosts: []Host{host}}
}

func validateHostName(s string) error {
	if s == "" {
		return fmt.Errorf("host name is required")
	}
	if !hostNamePattern.MatchString(strings.ToLower(s)) {
		return fmt.Errorf("host name can only contain lowercase letters, numbers, hyphens and underscores")
	}
	return nil
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
