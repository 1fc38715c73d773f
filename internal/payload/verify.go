package payload

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached OpenPGP signatures of payloads before delivery.
type Verifier struct {
	keyring openpgp.EntityList
}

func NewVerifier() *Verifier {
	return &Verifier{keyring: make(openpgp.EntityList, 0)}
}

// AddKeys imports armored or binary public keys.
func (v *Verifier) AddKeys(data []byte) error {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return fmt.Errorf("no keys found")
	}
	v.keyring = append(v.keyring, entities...)
	return nil
}

// AddKeyFile imports the keys stored at path.
func (v *Verifier) AddKeyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	return v.AddKeys(data)
}

// Verify checks sig against payload and returns the signer's fingerprint.
func (v *Verifier) Verify(payload, sig []byte) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no keys imported")
	}

	var (
		signer *openpgp.Entity
		err    error
	)
	if bytes.HasPrefix(bytes.TrimSpace(sig), []byte(armoredSignaturePrefix)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(payload), bytes.NewReader(sig), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(payload), bytes.NewReader(sig), nil)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}
	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// VerifyFiles is Verify over files on disk.
func (v *Verifier) VerifyFiles(payloadPath, sigPath string) (string, error) {
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}
	return v.Verify(payload, sig)
}

func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}
