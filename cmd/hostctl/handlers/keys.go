package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/juju/utils/v4"
	gossh "golang.org/x/crypto/ssh"

	"github.com/imamik/hostctl/internal/config"
	"github.com/imamik/hostctl/internal/runbook"
	"github.com/imamik/hostctl/internal/util/keygen"
)

// KeyOptions holds the flags of keys generate.
type KeyOptions struct {
	Output  string
	Type    string
	Bits    int
	Comment string
	Force   bool
}

// KeysGenerate writes a new key pair to Output and Output.pub.
func KeysGenerate(opts KeyOptions) error {
	privPath, err := config.ExpandHome(opts.Output)
	if err != nil {
		return err
	}
	pubPath := privPath + ".pub"

	if !opts.Force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	pair, err := keygen.Generate(keygen.Algorithm(strings.ToLower(opts.Type)), opts.Bits, opts.Comment)
	if err != nil {
		return err
	}

	if err := os.WriteFile(privPath, pair.PrivateKey, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pair.PublicKey, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	fmt.Printf("Private key: %s\n", privPath)
	fmt.Printf("Public key:  %s\n", pubPath)
	fmt.Printf("Fingerprint: %s\n", pair.Fingerprint)
	fmt.Println()
	fmt.Println("Install it with:")
	fmt.Printf("  hostctl keys install <host> %s\n", pubPath)
	return nil
}

// KeysInstall appends a public key to the remote user's authorized_keys,
// skipping keys that are already present.
func KeysInstall(ctx context.Context, configPath, hostName, pubKeyPath string) error {
	path, err := config.ExpandHome(pubKeyPath)
	if err != nil {
		return err
	}
	pub, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}
	if _, _, _, _, err := gossh.ParseAuthorizedKey(pub); err != nil {
		return fmt.Errorf("%s is not an SSH public key: %w", pubKeyPath, err)
	}

	step := runbook.Step{
		Name: "install public key",
		Run:  &runbook.RunAction{Command: keygen.AuthorizedKeysCommand(pub, utils.ShQuote)},
	}
	return runStep(ctx, configPath, hostName, "keys install", step)
}
