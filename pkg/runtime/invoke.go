package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// executor runs the instructions of a single transaction.
type executor struct {
	ctx      context.Context
	log      *logrus.Entry
	programs map[string]Program
	rent     Rent
	maxDepth int
	logs     []string
}

func (e *executor) logf(format string, args ...interface{}) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

func (e *executor) process(programID ed25519.PublicKey, accounts []*AccountInfo, data []byte, stack []ed25519.PublicKey) error {
	program, ok := e.programs[base58.Encode(programID)]
	if !ok {
		return errors.Wrapf(solana.InstructionErrorUnsupportedProgramID, "program %s", base58.Encode(programID))
	}

	ic := &InvokeContext{
		exec:     e,
		program:  programID,
		accounts: accounts,
		stack:    append(stack[:len(stack):len(stack)], programID),
	}
	ic.checkpoint()

	name := base58.Encode(programID)
	e.logf("Program %s invoke [%d]", name, len(ic.stack))

	err := program.Process(ic, data)
	if err == nil {
		err = ic.verify()
	}
	if err != nil {
		e.logf("Program %s failed: %v", name, err)
		e.log.WithError(err).WithField("program", name).Debug("program invocation failed")
		return err
	}

	e.logf("Program %s success", name)
	return nil
}

// InvokeContext is the execution context of one program invocation.
type InvokeContext struct {
	exec     *executor
	program  ed25519.PublicKey
	accounts []*AccountInfo
	stack    []ed25519.PublicKey

	snapshots map[*Account]accountSnapshot
}

// Context returns the context of the transaction submission.
func (c *InvokeContext) Context() context.Context {
	return c.exec.ctx
}

// ProgramID returns the address of the executing program.
func (c *InvokeContext) ProgramID() ed25519.PublicKey {
	return c.program
}

// Accounts returns the instruction accounts in the order the instruction
// listed them.
func (c *InvokeContext) Accounts() []*AccountInfo {
	return c.accounts
}

// Rent returns the rent parameters of the bank.
func (c *InvokeContext) Rent() Rent {
	return c.exec.rent
}

// Depth returns the invocation depth, starting at 1 for top level
// instructions.
func (c *InvokeContext) Depth() int {
	return len(c.stack)
}

// Log appends a program log line to the transaction logs.
func (c *InvokeContext) Log(format string, args ...interface{}) {
	c.exec.logf("Program log: "+format, args...)
}

// Invoke executes ix as a cross-program invocation. The callee may only be
// granted privileges the caller holds, except that the caller signs for every
// program derived address that signers derive under its own program id.
func (c *InvokeContext) Invoke(ix solana.Instruction, signers ...SignerSeeds) error {
	if len(c.stack) >= c.exec.maxDepth {
		return solana.InstructionErrorCallDepth
	}

	// Only direct recursion may re-enter a program already on the stack.
	if containsKey(c.stack, ix.Program) && !bytes.Equal(c.program, ix.Program) {
		return solana.InstructionErrorReentrancyNotAllowed
	}

	if _, _, ok := c.lookup(ix.Program); !ok {
		return errors.Wrapf(solana.InstructionErrorMissingAccount, "program %s not provided", base58.Encode(ix.Program))
	}

	derived := make([]ed25519.PublicKey, len(signers))
	for i, seeds := range signers {
		address, err := solana.CreateProgramAddress(c.program, seeds...)
		switch err {
		case nil:
		case solana.ErrMaxSeedLengthExceeded:
			return solana.InstructionErrorMaxSeedLengthExceeded
		default:
			return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
		}
		derived[i] = address
	}

	callee := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		acc, isSigner, ok := c.lookup(meta.PublicKey)
		if !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "account %s not provided", base58.Encode(meta.PublicKey))
		}

		if meta.IsSigner && !isSigner && !containsKey(derived, meta.PublicKey) {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "%s is not a signer", acc)
		}
		if meta.IsWritable && !c.isWritable(acc) {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "%s is not writable", acc)
		}

		callee[i] = &AccountInfo{
			Account:    acc,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}

	// Changes made so far are attributed to the caller, everything the callee
	// does is verified against the callee.
	if err := c.verify(); err != nil {
		return err
	}

	if err := c.exec.process(ix.Program, callee, ix.Data, c.stack); err != nil {
		return err
	}

	c.checkpoint()
	return nil
}

// lookup finds the account the invocation holds for key. The privileges of
// duplicated entries are merged.
func (c *InvokeContext) lookup(key ed25519.PublicKey) (acc *Account, isSigner bool, ok bool) {
	for _, info := range c.accounts {
		if !info.Is(key) {
			continue
		}
		acc = info.Account
		isSigner = isSigner || info.IsSigner
		ok = true
	}
	return acc, isSigner, ok
}

func (c *InvokeContext) isWritable(acc *Account) bool {
	for _, info := range c.accounts {
		if info.Account == acc && info.IsWritable {
			return true
		}
	}
	return false
}

func containsKey(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
