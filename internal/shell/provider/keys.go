package provider

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// GenerateSSHKeyPair generates an Ed25519 SSH key pair for a freshly
// provisioned target. Returns the public key (authorized_keys format) and
// private key (PEM format). The private key is handed to the caller once
// and never persisted.
func GenerateSSHKeyPair() (publicKey []byte, privateKeyPEM []byte, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	// Marshal public key to authorized_keys format
	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	pubKeyBytes := ssh.MarshalAuthorizedKey(sshPubKey)

	// Marshal private key to PEM
	privKeyBytes, err := ssh.MarshalPrivateKey(privKey, "clara-provisioned")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(privKeyBytes)

	return pubKeyBytes, privPEM, nil
}
