package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Algorithm names a supported key type.
type Algorithm string

// Supported key algorithms.
const (
	Ed25519 Algorithm = "ed25519"
	RSA     Algorithm = "rsa"
)

// minRSABits is the smallest RSA key accepted for SSH authentication.
const minRSABits = 2048

// KeyPair holds an SSH key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the private key in OpenSSH PEM format.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
	// Fingerprint is the SHA256 fingerprint of the public key.
	Fingerprint string
}

// Generate creates a key pair of the given algorithm. bits is only used for
// RSA keys. comment is embedded in both halves of the pair.
func Generate(alg Algorithm, bits int, comment string) (*KeyPair, error) {
	switch alg {
	case Ed25519, "":
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		return encode(priv, comment)
	case RSA:
		if bits < minRSABits {
			return nil, fmt.Errorf("rsa key size %d is below the minimum of %d bits", bits, minRSABits)
		}
		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
		}
		if err := priv.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
		}
		return encode(priv, comment)
	default:
		return nil, fmt.Errorf("unsupported key algorithm %q", alg)
	}
}

func encode(priv any, comment string) (*KeyPair, error) {
	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH signer: %w", err)
	}

	pub := ssh.MarshalAuthorizedKey(signer.PublicKey())
	if comment != "" {
		pub = []byte(strings.TrimSuffix(string(pub), "\n") + " " + comment + "\n")
	}

	return &KeyPair{
		PrivateKey:  pem.EncodeToMemory(block),
		PublicKey:   pub,
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
	}, nil
}

// AuthorizedKeysCommand returns a shell snippet that appends publicKey to the
// remote user's authorized_keys unless it is already present.
func AuthorizedKeysCommand(publicKey []byte, quote func(string) string) string {
	key := strings.TrimSpace(string(publicKey))
	return "mkdir -p ~/.ssh && chmod 700 ~/.ssh && touch ~/.ssh/authorized_keys && " +
		"chmod 600 ~/.ssh/authorized_keys && " +
		"(grep -qxF " + quote(key) + " ~/.ssh/authorized_keys || echo " + quote(key) + " >> ~/.ssh/authorized_keys)"
}
