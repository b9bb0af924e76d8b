package ssh

import (
	"fmt"
	"os"
	"path/filepath"

	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SystemKnownHosts is consulted after the user's file when present.
const SystemKnownHosts = "/etc/ssh/ssh_known_hosts"

// DefaultKnownHosts is the user's OpenSSH known_hosts file.
func DefaultKnownHosts() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ssh", "known_hosts")
}

func ensureKnownHostsFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("mkdir known_hosts dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0600); err != nil {
			return fmt.Errorf("create known_hosts: %w", err)
		}
	}
	return nil
}

// LoadKnownHostsCallback returns a strict host key callback over the user
// file, created empty if missing, and any of extra that exist. Unknown
// hosts are rejected; nothing is ever written back.
func LoadKnownHostsCallback(user string, extra ...string) (xssh.HostKeyCallback, error) {
	if err := ensureKnownHostsFile(user); err != nil {
		return nil, err
	}
	files := []string{user}
	for _, p := range extra {
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	return knownhosts.New(files...)
}
