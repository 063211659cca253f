// Package escrow implements a two party token swap escrow program.
//
// A maker deposits tokens of one mint into a vault controlled by a program
// derived escrow address, naming the amount of a second mint they want in
// return. A taker completes the swap atomically with Take, or the maker
// cancels it with Refund.
package escrow

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
)

// DefaultProgramID is the address the escrow program is deployed at unless
// configured otherwise.
//
// Current key: AKiu5e7ynzifZG6vy3gt1pT1HFP2uXscRXexH7s3m38A
var DefaultProgramID = mustBase58Decode("AKiu5e7ynzifZG6vy3gt1pT1HFP2uXscRXexH7s3m38A")

// Program is the escrow program deployed at a specific address. Every address
// it derives, and every signature it grants, is scoped to that address.
type Program struct {
	log *logrus.Entry
	id  ed25519.PublicKey
}

// NewProgram returns the escrow program deployed at programID.
func NewProgram(programID ed25519.PublicKey) *Program {
	return &Program{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":    "escrow/program",
			"program": base58.Encode(programID),
		}),
		id: programID,
	}
}

// ID implements runtime.Program.ID.
func (p *Program) ID() ed25519.PublicKey {
	return p.id
}

// Process implements runtime.Program.Process.
func (p *Program) Process(ctx *runtime.InvokeContext, data []byte) error {
	opcode, payload, err := DecodeInstruction(data)
	if err != nil {
		return err
	}

	ctx.Log("Instruction: %s", opcode)

	switch opcode {
	case OpcodeMake:
		args, err := DecodeMakeInstructionArgs(payload)
		if err != nil {
			return err
		}
		err = p.processMake(ctx, args)
	case OpcodeTake:
		err = p.processTake(ctx)
	case OpcodeRefund:
		err = p.processRefund(ctx)
	default:
		err = solana.InstructionErrorInvalidInstructionData
	}

	if err != nil {
		p.log.WithError(err).WithField("instruction", opcode.String()).Trace("instruction failed")
	}
	return err
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		panic(errors.Errorf("invalid key length: %d", len(decoded)))
	}
	return decoded
}
