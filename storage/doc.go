// Package storage provides key sources that load PEM key material for the
// credential vault from pluggable locations.
//
// Every source implements interfaces.KeySource. Sources are specified using
// URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - /etc/quiz/private-key.pem (a bare path is a local file)
//   - file:///etc/quiz/public-key.pem
//   - s3://bucket-name/keys/private-key.pem?region=eu-west-1
//   - vault://vault.example.com:8200/secret/quiz/private-key?field=pem&token_env=VAULT_TOKEN
//   - ipfs://ipfs.example.com:5001/<cid> (public keys only)
//
// A comma-separated list of URIs yields a MultiKeySource which tries each
// location in order and returns the first key material found.
//
// # Errors
//
// Sources return interfaces.ErrKeyNotFound when the location is reachable but
// holds no key, and wrap interfaces.ErrKeySourceUnavailable when the backend
// cannot be reached. Malformed URIs wrap interfaces.ErrInvalidLocationURI.
package storage
