// Package cryptoutils provides the credential vault and the key handling it
// depends on.
//
// Credentials are encrypted with RSA-OAEP using SHA-256 under a 2048-bit (or
// larger) public key and stored as lowercase hex. The matching private key
// recovers them. Encryption is randomized, so two encryptions of the same
// credential differ and credentials are compared by decrypt-then-compare.
//
// A 2048-bit key can encrypt at most 190 bytes of credential; longer input is
// rejected with interfaces.ErrCrypto rather than truncated. See MaxPlaintextSize.
//
// # Key Loading
//
// KeyStore reads PEM key material from an interfaces.KeySource (see package
// storage) on first use and caches the parsed key for the lifetime of the
// process. Supported encodings:
//
//   - Public keys: PKIX "PUBLIC KEY", PKCS#1 "RSA PUBLIC KEY", or an X.509 "CERTIFICATE"
//   - Private keys: PKCS#8 "PRIVATE KEY", PKCS#1 "RSA PRIVATE KEY", OpenSSH keys,
//     and passphrase-protected PEM or OpenSSH keys via KeyStore.WithPassphrase
//
// # Security Considerations
//
// Credentials are stored reversibly. Anyone holding the private key and the
// users table can recover every credential in plaintext. The private key must
// be kept out of the database host's backups and should be served from a
// secret store (Vault or S3 with restricted access) in production.
//
// # Usage Example
//
//	factory := storage.NewKeySourceFactory(log)
//	pub, _ := factory.KeySourceFor("file:///etc/quiz/public-key.pem")
//	priv, _ := factory.PrivateKeySourceFor("vault://vault:8200/secret/quiz/private-key")
//
//	vault := cryptoutils.NewVault(cryptoutils.NewKeyStore(pub, priv, log), log)
//	stored, err := vault.Encrypt(ctx, "hunter2")
//	ok, err := vault.Verify(ctx, "hunter2", stored)
package cryptoutils
