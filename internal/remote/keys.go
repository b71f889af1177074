// pattern: Imperative Shell

package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyManager generates and serves the ed25519 key pair used for guest
// access. Keys live under {dataDir}/ssh/.
type KeyManager struct {
	dataDir string
}

// NewKeyManager creates a key manager rooted at dataDir.
func NewKeyManager(dataDir string) *KeyManager {
	return &KeyManager{dataDir: dataDir}
}

func (m *KeyManager) sshDir() string {
	return filepath.Join(m.dataDir, "ssh")
}

// PrivateKeyPath returns the private key path. The file may not exist
// yet; call EnsureKeyPair first.
func (m *KeyManager) PrivateKeyPath() string {
	return filepath.Join(m.sshDir(), "benchup")
}

// PublicKeyPath returns the public key path.
func (m *KeyManager) PublicKeyPath() string {
	return filepath.Join(m.sshDir(), "benchup.pub")
}

// EnsureKeyPair generates the key pair on first use. Existing keys are
// left alone.
func (m *KeyManager) EnsureKeyPair() error {
	if m.Exists() {
		return nil
	}

	if err := os.MkdirAll(m.sshDir(), 0700); err != nil {
		return fmt.Errorf("create ssh directory: %w", err)
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate ed25519 key: %w", err)
	}

	pemBlock, err := ssh.MarshalPrivateKey(privKey, "benchup workbench key")
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.WriteFile(m.PrivateKeyPath(), pem.EncodeToMemory(pemBlock), 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		os.Remove(m.PrivateKeyPath())
		return fmt.Errorf("convert public key: %w", err)
	}
	if err := os.WriteFile(m.PublicKeyPath(), ssh.MarshalAuthorizedKey(sshPub), 0644); err != nil {
		os.Remove(m.PrivateKeyPath())
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}

// Exists reports whether both halves of the key pair are on disk.
func (m *KeyManager) Exists() bool {
	_, privErr := os.Stat(m.PrivateKeyPath())
	_, pubErr := os.Stat(m.PublicKeyPath())
	return privErr == nil && pubErr == nil
}

// PublicKey returns the authorized_keys form of the public key.
func (m *KeyManager) PublicKey() (string, error) {
	data, err := os.ReadFile(m.PublicKeyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("ssh key pair not generated yet")
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
