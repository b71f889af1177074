package remote

import (
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestEnsureKeyPairGeneratesOnce(t *testing.T) {
	dataDir := t.TempDir()
	km := NewKeyManager(dataDir)

	if km.Exists() {
		t.Fatal("keys should not exist yet")
	}

	if err := km.EnsureKeyPair(); err != nil {
		t.Fatalf("EnsureKeyPair: %v", err)
	}
	if !km.Exists() {
		t.Fatal("keys should exist after generation")
	}

	// Private key parses and is ed25519.
	privData, err := os.ReadFile(km.PrivateKeyPath())
	if err != nil {
		t.Fatalf("read private key: %v", err)
	}
	signer, err := ssh.ParsePrivateKey(privData)
	if err != nil {
		t.Fatalf("parse private key: %v", err)
	}
	if signer.PublicKey().Type() != ssh.KeyAlgoED25519 {
		t.Errorf("key type: got %q", signer.PublicKey().Type())
	}

	// Public key is authorized_keys formatted and matches the private half.
	pub, err := km.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !strings.HasPrefix(pub, "ssh-ed25519 ") {
		t.Errorf("public key format: %q", pub)
	}
	parsed, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pub))
	if err != nil {
		t.Fatalf("parse authorized key: %v", err)
	}
	if string(parsed.Marshal()) != string(signer.PublicKey().Marshal()) {
		t.Error("public key does not match private key")
	}

	// Second call keeps the existing pair.
	before := privData
	if err := km.EnsureKeyPair(); err != nil {
		t.Fatalf("second EnsureKeyPair: %v", err)
	}
	after, _ := os.ReadFile(km.PrivateKeyPath())
	if string(before) != string(after) {
		t.Error("EnsureKeyPair must not regenerate existing keys")
	}
}

func TestPrivateKeyPermissions(t *testing.T) {
	km := NewKeyManager(t.TempDir())
	if err := km.EnsureKeyPair(); err != nil {
		t.Fatalf("EnsureKeyPair: %v", err)
	}
	info, err := os.Stat(km.PrivateKeyPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("private key mode: got %o, want 0600", info.Mode().Perm())
	}
}

func TestPublicKeyBeforeGeneration(t *testing.T) {
	km := NewKeyManager(t.TempDir())
	if _, err := km.PublicKey(); err == nil {
		t.Error("PublicKey before generation should error")
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := &ExitError{Command: "bash /tmp/provision.sh", Code: 2}
	want := "remote command exited 2: bash /tmp/provision.sh"
	if err.Error() != want {
		t.Errorf("Error: got %q", err.Error())
	}
}
