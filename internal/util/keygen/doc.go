// Package keygen generates SSH key pairs for moving hosts off password logins.
//
// Private keys are returned in OpenSSH PEM format and public keys in
// authorized_keys format, ready to be written to disk by `hostctl keys
// generate` and appended to a remote authorized_keys by `hostctl keys install`.
package keygen
