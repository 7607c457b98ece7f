package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Keys returns the command group for SSH key management.
func Keys() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate and install SSH keys",
		Long: `Generate an SSH key pair and install its public half on a host, so
inventory entries can move from password_env to key_file.`,
	}
	cmd.AddCommand(keysGenerate())
	cmd.AddCommand(keysInstall())
	return cmd
}

func keysGenerate() *cobra.Command {
	var opts handlers.KeyOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.KeysGenerate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "id_hostctl", "Private key path (public key gets .pub)")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "ed25519", "Key type: ed25519 or rsa")
	cmd.Flags().IntVarP(&opts.Bits, "bits", "b", 4096, "RSA key size")
	cmd.Flags().StringVarP(&opts.Comment, "comment", "C", "hostctl", "Key comment")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite existing key files")

	return cmd
}

func keysInstall() *cobra.Command {
	return &cobra.Command{
		Use:   "install <host> <public-key-file>",
		Short: "Append a public key to the host's authorized_keys",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.KeysInstall(cmd.Context(), configPath, args[0], args[1])
		},
	}
}
