package ffs

// ProverState is the protocol phase of a Prover.
type ProverState uint8

const (
	ProverIdle ProverState = iota
	ProverKeysPublished
	ProverCommitted
	ProverResponded
	ProverDestroyed
)

func (s ProverState) String() string {
	switch s {
	case ProverIdle:
		return "idle"
	case ProverKeysPublished:
		return "keys-published"
	case ProverCommitted:
		return "committed"
	case ProverResponded:
		return "responded"
	case ProverDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// VerifierState is the protocol phase of a Verifier.
type VerifierState uint8

const (
	VerifierIdle VerifierState = iota
	VerifierKeysReceived
	VerifierChallenged
	VerifierVerified
)

func (s VerifierState) String() string {
	switch s {
	case VerifierIdle:
		return "idle"
	case VerifierKeysReceived:
		return "keys-received"
	case VerifierChallenged:
		return "challenged"
	case VerifierVerified:
		return "verified"
	default:
		return "unknown"
	}
}
