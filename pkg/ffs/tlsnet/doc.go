// Package tlsnet implements ffs.Transport over a mutually authenticated TLS
// connection between the prover and the verifier.
//
// The verifier listens and the prover dials, retrying until the verifier is
// up. Both sides present certificates signed by a shared CA, and each side
// checks that the peer's certificate names the expected party. Messages are
// sent as length-prefixed frames.
//
// GenerateCertificates writes a demo CA plus one certificate per party, and
// LoadCertificates reads them back.
package tlsnet
