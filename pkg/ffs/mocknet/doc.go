// Package mocknet provides an in-memory transport for tests and examples.
//
// Mocknet implements ffs.Transport with buffered channels: delivery between
// the two parties is sequenced and reliable, and every blocking call honours
// its context.
//
//	net := mocknet.New()
//	proverEP := net.Endpoint(ffs.RoleProver)
//	verifierEP := net.Endpoint(ffs.RoleVerifier)
//
// Run each party in its own goroutine and always bound the run with
// context.WithTimeout so a protocol bug shows up as a timeout rather than a
// hung test.
//
// Mocknet has no encryption, authentication, latency or loss. For real
// deployments use the tlsnet package.
package mocknet
