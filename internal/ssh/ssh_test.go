package ssh

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	xssh "golang.org/x/crypto/ssh"

	"github.com/3cpo-dev/sweep/internal/ssh/sshtest"
)

func testClient(t *testing.T, srv *sshtest.Server) *Client {
	t.Helper()
	signers, err := LoadSigners([]string{filepath.Join(t.TempDir(), "missing"), srv.KeyPath})
	if err != nil {
		t.Fatalf("load signers: %v", err)
	}
	kh, err := LoadKnownHostsCallback(srv.KnownHosts)
	if err != nil {
		t.Fatalf("known hosts: %v", err)
	}
	return &Client{Addr: srv.Addr, User: "ops", Signers: signers, KnownHosts: kh, Timeout: 5 * time.Second}
}

func TestRunCommand(t *testing.T) {
	srv := sshtest.Start(t, func(cmd string) (string, string, int) {
		if cmd == "false" {
			return "", "failed\n", 3
		}
		return "ran " + cmd + "\n", "", 0
	})
	c := testClient(t, srv)

	out, err := c.RunCommand(context.Background(), "uptime")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.ExitCode != 0 || out.Stdout != "ran uptime\n" {
		t.Fatalf("unexpected output %+v", out)
	}

	out, err = c.RunCommand(context.Background(), "false")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if out.ExitCode != 3 || out.Stderr != "failed\n" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestRunCommandRejectsUnknownHostKey(t *testing.T) {
	srv := sshtest.Start(t, func(string) (string, string, int) { return "", "", 0 })
	c := testClient(t, srv)
	empty := filepath.Join(t.TempDir(), "known_hosts")
	kh, err := LoadKnownHostsCallback(empty)
	if err != nil {
		t.Fatalf("known hosts: %v", err)
	}
	c.KnownHosts = kh
	if _, err := c.RunCommand(context.Background(), "uptime"); err == nil {
		t.Fatalf("expected host key verification failure")
	}
}

func TestMakeConfigRequiresKeys(t *testing.T) {
	c := &Client{Addr: "127.0.0.1:22"}
	if _, err := c.RunCommand(context.Background(), "true"); err == nil || !strings.Contains(err.Error(), "signer") {
		t.Fatalf("expected signer error, got %v", err)
	}
}

func TestLoadSignersNoneUsable(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "id_rsa")
	if err := os.WriteFile(junk, []byte("not a key"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSigners([]string{junk, filepath.Join(dir, "nope")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestKnownHostsCallbackMergesFiles(t *testing.T) {
	srv := sshtest.Start(t, func(string) (string, string, int) { return "ok\n", "", 0 })
	user := filepath.Join(t.TempDir(), "nested", "known_hosts")
	kh, err := LoadKnownHostsCallback(user, filepath.Join(t.TempDir(), "absent"), srv.KnownHosts)
	if err != nil {
		t.Fatalf("load known_hosts: %v", err)
	}
	if _, err := os.Stat(user); err != nil {
		t.Fatalf("user known_hosts not created: %v", err)
	}
	signer, err := LoadPrivateKeySigner(srv.KeyPath)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	c := &Client{Addr: srv.Addr, User: "ops", Signers: []xssh.Signer{signer}, KnownHosts: kh, Timeout: 5 * time.Second}
	out, err := c.RunCommand(context.Background(), "true")
	if err != nil {
		t.Fatalf("host key from extra file not trusted: %v", err)
	}
	if out.Stdout != "ok\n" {
		t.Fatalf("stdout = %q", out.Stdout)
	}
}
