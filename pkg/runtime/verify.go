package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

type accountSnapshot struct {
	owner      ed25519.PublicKey
	lamports   uint64
	data       []byte
	executable bool
}

func snapshotOf(acc *Account) accountSnapshot {
	data := make([]byte, len(acc.Data))
	copy(data, acc.Data)

	return accountSnapshot{
		owner:      acc.Owner,
		lamports:   acc.Lamports,
		data:       data,
		executable: acc.Executable,
	}
}

// checkpoint records the state that the next verify compares against.
func (c *InvokeContext) checkpoint() {
	c.snapshots = make(map[*Account]accountSnapshot, len(c.accounts))
	for _, info := range c.accounts {
		if _, ok := c.snapshots[info.Account]; !ok {
			c.snapshots[info.Account] = snapshotOf(info.Account)
		}
	}
}

// verify checks the changes since the last checkpoint against the ownership
// rules for the executing program:
//
//   - only the owner may debit lamports or modify data
//   - only the owner may reassign a writable account, and only once its data is zeroed
//   - read-only accounts are immutable
//   - the total balance of the accounts is conserved
func (c *InvokeContext) verify() error {
	var preHi, preLo, postHi, postLo, carry uint64

	for acc, pre := range c.snapshots {
		writable := c.isWritable(acc)
		owned := bytes.Equal(pre.owner, c.program)

		if pre.executable != acc.Executable {
			return errors.Wrapf(solana.InstructionErrorExecutableModified, "account %s", acc)
		}

		if !bytes.Equal(pre.owner, acc.Owner) {
			if !writable || !owned || pre.executable || !isZeroed(acc.Data) {
				return errors.Wrapf(solana.InstructionErrorModifiedProgramID, "account %s", acc)
			}
		}

		if acc.Lamports != pre.lamports {
			if !writable {
				return errors.Wrapf(solana.InstructionErrorReadonlyLamportChange, "account %s", acc)
			}
			if acc.Lamports < pre.lamports && !owned {
				return errors.Wrapf(solana.InstructionErrorExternalAccountLamportSpend, "account %s", acc)
			}
		}

		if !bytes.Equal(pre.data, acc.Data) {
			if !writable {
				return errors.Wrapf(solana.InstructionErrorReadonlyDataModified, "account %s", acc)
			}
			if !owned {
				return errors.Wrapf(solana.InstructionErrorExternalAccountDataModified, "account %s", acc)
			}
		}

		preLo, carry = bits.Add64(preLo, pre.lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, acc.Lamports, 0)
		postHi += carry
	}

	if preHi != postHi || preLo != postLo {
		return solana.InstructionErrorUnbalancedInstruction
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
