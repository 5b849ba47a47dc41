// Package cryptox wraps the cryptographic building blocks used by BlockVault:
// passphrase-based AES-256-GCM file sealing (client side), argon2id master-key
// derivation for login, and RSA-OAEP passphrase envelopes for sharing.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/blockvault/blockvault/internal/common"
)

// Sealed file layout: magic (8) || salt (16) || nonce (12) || AES-256-GCM ciphertext.
// The key is PBKDF2-HMAC-SHA256(passphrase, salt, 120000 iterations, 32 bytes).
var fileMagic = []byte("BVENC001")

const (
	saltLen     = 16
	nonceLen    = 12
	pbkdf2Iters = 120000

	// MinRSABits is the smallest sharing key size the registry accepts.
	MinRSABits = 2048
)

func deriveFileKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, pbkdf2Iters, 32, sha256.New)
}

// MakeVerifier returns the login verifier for a derived master key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey derives a 32-byte master key from a password and salt
// using argon2id. Used during registration and login only; file contents
// are protected by per-file passphrases, not by this key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// SealFile encrypts plaintext under a passphrase with AES-256-GCM and returns
// a self-describing blob (magic, salt and nonce prepended). The optional aad
// is authenticated but not stored.
func SealFile(plaintext, passphrase, aad []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltLen)
	nonce := common.GenerateRandByteArray(nonceLen)

	block, err := aes.NewCipher(deriveFileKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, aad)

	out := make([]byte, 0, len(fileMagic)+saltLen+nonceLen+len(ciphertext))
	out = append(out, fileMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// OpenFile decrypts a blob produced by SealFile. A wrong passphrase, a wrong
// aad or a corrupted blob yields an error from the AEAD open.
func OpenFile(sealed, passphrase, aad []byte) ([]byte, error) {
	if len(sealed) < len(fileMagic)+saltLen+nonceLen {
		return nil, errors.New("sealed blob too short")
	}
	if !bytes.Equal(sealed[:len(fileMagic)], fileMagic) {
		return nil, errors.New("invalid magic header")
	}
	rest := sealed[len(fileMagic):]
	salt, rest := rest[:saltLen], rest[saltLen:]
	nonce, ciphertext := rest[:nonceLen], rest[nonceLen:]

	block, err := aes.NewCipher(deriveFileKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, aad)
}

// GenerateRSAKeyPair creates a fresh sharing key pair and returns it with
// both halves PEM-encoded (PKCS#8 private, PKIX public).
func GenerateRSAKeyPair(bits int) (privPEM, pubPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// ParseRSAPublicKey parses a PEM-encoded RSA public key and enforces the
// minimum modulus size. Returns common.ErrorInvalidKeyFormat for anything
// that is not a well-formed RSA key of at least MinRSABits.
func ParseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, common.ErrorInvalidKeyFormat
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// PKCS#1 keys ("RSA PUBLIC KEY" blocks) are accepted too.
		rsaKey, err1 := x509.ParsePKCS1PublicKey(block.Bytes)
		if err1 != nil {
			return nil, common.ErrorInvalidKeyFormat
		}
		parsed = rsaKey
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, common.ErrorInvalidKeyFormat
	}
	if rsaKey.N.BitLen() < MinRSABits {
		return nil, common.ErrorInvalidKeyFormat
	}
	return rsaKey, nil
}

// ParseRSAPrivateKey parses a PEM-encoded PKCS#8 or PKCS#1 RSA private key.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an RSA private key")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// SealPassphrase encrypts a plaintext passphrase to the given PEM public key
// using RSA-OAEP with a SHA-256 mask and no label. This is the only form in
// which a passphrase ever reaches the server.
func SealPassphrase(pubPEM []byte, passphrase []byte) ([]byte, error) {
	pub, err := ParseRSAPublicKey(pubPEM)
	if err != nil {
		return nil, err
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("rsa encrypt: %w", err)
	}
	return ciphertext, nil
}

// OpenPassphrase decrypts an RSA-OAEP envelope with a private key.
// Client-side only; the server never holds private keys.
func OpenPassphrase(priv *rsa.PrivateKey, envelope []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, envelope, nil)
}

// Sha256Hex returns the lowercase hex digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidSha256Hex reports whether s is exactly 64 hex characters.
func ValidSha256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
