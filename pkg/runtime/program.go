package runtime

import (
	"crypto/ed25519"
)

// Program is executable code deployed at a fixed address.
type Program interface {
	// ID returns the address the program is deployed at.
	ID() ed25519.PublicKey

	// Process executes a single instruction addressed to the program. The
	// accounts and signer/writable privileges of the instruction are available
	// through ctx. Any returned error aborts the whole transaction.
	Process(ctx *InvokeContext, data []byte) error
}

// SignerSeeds are the seeds, bump included, of a program derived address
// that the invoking program signs for.
type SignerSeeds [][]byte

type nativeProgram struct {
	id      ed25519.PublicKey
	process func(ctx *InvokeContext, data []byte) error
}

// NewNativeProgram adapts a processing function into a Program.
func NewNativeProgram(id ed25519.PublicKey, process func(ctx *InvokeContext, data []byte) error) Program {
	return &nativeProgram{
		id:      id,
		process: process,
	}
}

func (p *nativeProgram) ID() ed25519.PublicKey {
	return p.id
}

func (p *nativeProgram) Process(ctx *InvokeContext, data []byte) error {
	return p.process(ctx, data)
}
