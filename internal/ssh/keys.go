package ssh

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	xssh "golang.org/x/crypto/ssh"
)

// DefaultIdentityFiles are tried when no key path is configured.
func DefaultIdentityFiles() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
}

// LoadPrivateKeySigner reads an OpenSSH/PEM private key file and returns an ssh.Signer.
func LoadPrivateKeySigner(privateKeyPath string) (xssh.Signer, error) {
	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	// Passphrase protected keys are not supported
	signer, err := xssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", privateKeyPath, err)
	}
	return signer, nil
}

// LoadSigners loads every readable key among paths. Missing files are
// skipped; it fails only if nothing could be loaded.
func LoadSigners(paths []string) ([]xssh.Signer, error) {
	var signers []xssh.Signer
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		s, err := LoadPrivateKeySigner(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Skipping unusable SSH key")
			continue
		}
		signers = append(signers, s)
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("no usable SSH private key in %v", paths)
	}
	return signers, nil
}
