package escrow

import (
	"github.com/code-payments/code-escrow/pkg/solana"
)

// Custom errors returned by the escrow program.
const (
	// The escrow account isn't the address derived from the maker and seed
	ErrorEscrowAddressMismatch solana.CustomError = iota

	// The maker doesn't match the maker recorded in the escrow
	ErrorMakerMismatch

	// A mint doesn't match the mints recorded in the escrow
	ErrorMintMismatch

	// The vault isn't a token account for the deposited mint held by the escrow
	ErrorInvalidVault

	// The maker's mint B token account isn't held by the maker
	ErrorInvalidMakerAccount
)
