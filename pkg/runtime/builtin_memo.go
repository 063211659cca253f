package runtime

import (
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
)

func processMemo(ctx *InvokeContext, data []byte) error {
	text, err := memo.Validate(data)
	if err != nil {
		return err
	}

	for _, info := range ctx.Accounts() {
		if !info.IsSigner {
			ctx.Log("Missing required signature for %s", info)
			return solana.InstructionErrorMissingRequiredSignature
		}
	}

	ctx.Log("Memo (len %d): %q", len(text), text)
	return nil
}
