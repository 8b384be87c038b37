// Package adaptive provides authenticated encryption for minidb images.
//
// A Cipher seals and opens byte blocks with an AEAD. New picks AES-256-GCM
// on architectures where Go uses hardware AES, and ChaCha20-Poly1305
// elsewhere. The chosen CipherType is recorded alongside the ciphertext so
// that an image written on one machine opens on another.
//
// Keys come either from raw bytes or from a passphrase through DeriveKey
// (Argon2id). The salt used for derivation must be stored next to the
// ciphertext.
//
// Usage:
//
//	salt, _ := adaptive.NewSalt()
//	c, err := adaptive.New(adaptive.DeriveKey(passphrase, salt))
//	sealed, err := c.Encrypt(plaintext, aad)
//	plain, err := c.Decrypt(sealed, aad)
package adaptive
