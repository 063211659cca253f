// Package client builds, signs and submits escrow transactions, and reads
// escrow state back from the bank.
package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/rate"
	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/sync"
)

const (
	metricsStructName = "escrow.client"

	escrowLockStripes = 1024
)

var (
	ErrEscrowNotFound = errors.New("escrow not found")
	ErrRateLimited    = errors.New("fee payer rate limit exceeded")
)

// Bank is the subset of the runtime bank used by the client.
type Bank interface {
	SubmitTransaction(ctx context.Context, tx solana.Transaction) (*runtime.Result, error)
	GetAccount(ctx context.Context, key ed25519.PublicKey) (*runtime.Account, error)
	GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, opts ...query.Option) ([]*runtime.KeyedAccount, error)
}

// Escrow is an open escrow and the vault the client funds it through.
type Escrow struct {
	Address ed25519.PublicKey
	Vault   ed25519.PublicKey
	State   *escrow.EscrowAccount

	// Cursor is only set for escrows returned by ListEscrows.
	Cursor query.Cursor
}

// MakeParams describes the offer of a new escrow.
type MakeParams struct {
	Seed    uint64
	MintA   ed25519.PublicKey
	MintB   ed25519.PublicKey
	Amount  uint64
	Receive uint64
}

type options struct {
	memo string
}

// Option configures a single client call.
type Option func(*options)

// WithMemo attaches a memo, signed by the fee payer, to the transaction.
func WithMemo(text string) Option {
	return func(o *options) {
		o.memo = text
	}
}

// Client submits escrow instructions for a single deployment of the program.
//
// Calls touching the same escrow are serialized within a client. Transactions
// rejected with AccountInUse are rebuilt, re-signed and retried with backoff.
type Client struct {
	log  *logrus.Entry
	conf *conf

	bank    Bank
	program ed25519.PublicKey

	escrowLocks *sync.StripedLock
	limiter     rate.Limiter
}

func New(bank Bank, program ed25519.PublicKey, configProvider ConfigProvider) *Client {
	conf := configProvider()
	perSecond := conf.payerRateLimit.Get(context.Background())

	return &Client{
		log:         logrus.StandardLogger().WithField("type", "escrow/client"),
		conf:        conf,
		bank:        bank,
		program:     program,
		escrowLocks: sync.NewStripedLock(escrowLockStripes),
		limiter:     rate.NewLocalLimiter(float64(perSecond), int(perSecond)),
	}
}

// Make opens an escrow for maker, moving params.Amount of mint A from the
// maker's associated token account into a newly created vault.
func (c *Client) Make(ctx context.Context, maker ed25519.PrivateKey, params *MakeParams, opts ...Option) (*Escrow, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Make")
	defer tracer.End()

	makerKey := publicKey(maker)

	address, bump, err := escrow.GetEscrowAddress(c.program, makerKey, params.Seed)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error deriving escrow address")
	}
	vault, _, err := escrow.GetVaultAddress(c.program, address)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error deriving vault address")
	}
	makerAtaA, err := token.GetAssociatedAccount(makerKey, params.MintA)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error deriving maker token account")
	}

	ix := escrow.NewMakeInstruction(
		c.program,
		&escrow.MakeInstructionAccounts{
			Maker:     makerKey,
			MintA:     params.MintA,
			MintB:     params.MintB,
			MakerAtaA: makerAtaA,
			Vault:     vault,
			Escrow:    address,
		},
		&escrow.MakeInstructionArgs{
			Seed:    params.Seed,
			Amount:  params.Amount,
			Receive: params.Receive,
			Bump:    bump,
		},
	)

	lock := c.escrowLocks.Get(address)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.submit(ctx, []ed25519.PrivateKey{maker}, []solana.Instruction{ix}, opts...); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	return &Escrow{
		Address: address,
		Vault:   vault,
		State: &escrow.EscrowAccount{
			Maker:   makerKey,
			MintA:   params.MintA,
			MintB:   params.MintB,
			Amount:  params.Amount,
			Receive: params.Receive,
			Seed:    params.Seed,
			Bump:    bump,
		},
	}, nil
}

// Take settles the escrow at address. The taker pays the escrow's receive
// amount of mint B to the maker and receives the vault's balance of mint A.
// Associated token accounts for the taker's mint A and the maker's mint B are
// created as needed, funded by the taker.
//
// Returns the transaction signature.
func (c *Client) Take(ctx context.Context, taker ed25519.PrivateKey, address ed25519.PublicKey, opts ...Option) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Take")
	defer tracer.End()

	lock := c.escrowLocks.Get(address)
	lock.Lock()
	defer lock.Unlock()

	open, err := c.GetEscrow(ctx, address)
	if err != nil {
		tracer.OnError(err)
		return "", err
	}
	state := open.State
	takerKey := publicKey(taker)

	createTakerAtaA, takerAtaA, err := token.CreateAssociatedTokenAccountIdempotent(takerKey, takerKey, state.MintA)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error deriving taker mint a account")
	}
	createMakerAtaB, makerAtaB, err := token.CreateAssociatedTokenAccountIdempotent(takerKey, state.Maker, state.MintB)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error deriving maker mint b account")
	}
	takerAtaB, err := token.GetAssociatedAccount(takerKey, state.MintB)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error deriving taker mint b account")
	}

	ix := escrow.NewTakeInstruction(c.program, &escrow.TakeInstructionAccounts{
		Taker:     takerKey,
		Maker:     state.Maker,
		MintA:     state.MintA,
		MintB:     state.MintB,
		MakerAtaB: makerAtaB,
		TakerAtaA: takerAtaA,
		TakerAtaB: takerAtaB,
		Vault:     open.Vault,
		Escrow:    address,
	})

	sig, err := c.submit(ctx, []ed25519.PrivateKey{taker}, []solana.Instruction{createTakerAtaA, createMakerAtaB, ix}, opts...)
	if err != nil {
		tracer.OnError(err)
		return "", err
	}
	return sig, nil
}

// Refund cancels the maker's escrow at address, returning the vault's balance
// of mint A to the maker's associated token account.
//
// Returns the transaction signature.
func (c *Client) Refund(ctx context.Context, maker ed25519.PrivateKey, address ed25519.PublicKey, opts ...Option) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Refund")
	defer tracer.End()

	lock := c.escrowLocks.Get(address)
	lock.Lock()
	defer lock.Unlock()

	open, err := c.GetEscrow(ctx, address)
	if err != nil {
		tracer.OnError(err)
		return "", err
	}
	makerKey := publicKey(maker)

	createMakerAtaA, makerAtaA, err := token.CreateAssociatedTokenAccountIdempotent(makerKey, makerKey, open.State.MintA)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error deriving maker mint a account")
	}

	ix := escrow.NewRefundInstruction(c.program, &escrow.RefundInstructionAccounts{
		Maker:     makerKey,
		MintA:     open.State.MintA,
		MakerAtaA: makerAtaA,
		Vault:     open.Vault,
		Escrow:    address,
	})

	sig, err := c.submit(ctx, []ed25519.PrivateKey{maker}, []solana.Instruction{createMakerAtaA, ix}, opts...)
	if err != nil {
		tracer.OnError(err)
		return "", err
	}
	return sig, nil
}

// GetEscrow returns the open escrow at address.
//
// Returns ErrEscrowNotFound if there is no open escrow at address.
func (c *Client) GetEscrow(ctx context.Context, address ed25519.PublicKey) (*Escrow, error) {
	acc, err := c.bank.GetAccount(ctx, address)
	if err == runtime.ErrAccountNotFound {
		return nil, ErrEscrowNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting escrow account")
	}

	return c.toEscrow(acc)
}

// ListEscrows returns a page of open escrows. Accepts the query.WithLimit,
// query.WithCursor and query.WithDirection options.
//
// Returns ErrEscrowNotFound if no escrows are found.
func (c *Client) ListEscrows(ctx context.Context, opts ...query.Option) ([]*Escrow, error) {
	accounts, err := c.bank.GetProgramAccounts(ctx, c.program, opts...)
	if err == runtime.ErrAccountNotFound {
		return nil, ErrEscrowNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting program accounts")
	}

	res := make([]*Escrow, 0, len(accounts))
	for _, acc := range accounts {
		open, err := c.toEscrow(acc.Account)
		if err != nil {
			c.log.WithError(err).WithField("account", base58.Encode(acc.Key)).Warn("skipping undecodable program account")
			continue
		}

		open.Cursor = acc.Cursor
		res = append(res, open)
	}

	if len(res) == 0 {
		return nil, ErrEscrowNotFound
	}
	return res, nil
}

// GetTokenBalance returns the token balance of the token account at address.
func (c *Client) GetTokenBalance(ctx context.Context, address ed25519.PublicKey) (uint64, error) {
	acc, err := c.bank.GetAccount(ctx, address)
	if err != nil {
		return 0, errors.Wrap(err, "error getting token account")
	}

	var state token.Account
	if !acc.IsOwnedBy(token.ProgramKey) || !state.Unmarshal(acc.Data) {
		return 0, errors.Errorf("%s is not a token account", base58.Encode(address))
	}
	return state.Amount, nil
}

func (c *Client) toEscrow(acc *runtime.Account) (*Escrow, error) {
	if !acc.IsOwnedBy(c.program) {
		return nil, ErrEscrowNotFound
	}

	var state escrow.EscrowAccount
	if err := state.Unmarshal(acc.Data); err != nil {
		return nil, errors.Wrap(err, "error decoding escrow")
	}

	vault, _, err := escrow.GetVaultAddress(c.program, acc.Key)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving vault address")
	}

	return &Escrow{
		Address: acc.Key,
		Vault:   vault,
		State:   &state,
	}, nil
}

// submit signs and submits the instructions, paid for by the first signer.
func (c *Client) submit(ctx context.Context, signers []ed25519.PrivateKey, instructions []solana.Instruction, opts ...Option) (string, error) {
	var applied options
	for _, o := range opts {
		o(&applied)
	}

	payer := publicKey(signers[0])
	if len(applied.memo) > 0 {
		instructions = append(instructions, memo.Instruction(applied.memo, payer))
	}

	encodedPayer := base58.Encode(payer)
	log := c.log.WithField("payer", encodedPayer)

	if !c.limiter.Allow(encodedPayer) {
		log.Debug("fee payer rate limited")
		return "", ErrRateLimited
	}

	var signature string
	attempts, err := retry.Retry(
		func() error {
			// Each attempt gets a fresh blockhash so that a retried transaction
			// has a new signature.
			tx := solana.NewTransaction(payer, instructions...)
			blockhash, err := newBlockhash()
			if err != nil {
				return err
			}
			tx.SetBlockhash(blockhash)
			if err := tx.Sign(signers...); err != nil {
				return errors.Wrap(err, "error signing transaction")
			}

			res, err := c.bank.SubmitTransaction(ctx, tx)
			if err != nil {
				if isAccountInUse(err) {
					log.WithField("signature", tx.SignatureString()).Debug("accounts in use, retrying")
				}
				return err
			}

			signature = res.Signature
			return nil
		},
		retry.RetriableFunc(isAccountInUse),
		retry.Limit(uint(c.conf.maxAttempts.Get(ctx))),
		retry.Backoff(backoff.BinaryExponential(c.conf.baseBackoff.Get(ctx)), c.conf.maxBackoff.Get(ctx)),
		retry.Context(ctx),
	)
	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Debug("transaction failed")
		return "", err
	}

	log.WithFields(logrus.Fields{
		"signature": signature,
		"attempts":  attempts,
	}).Debug("transaction committed")
	return signature, nil
}

func isAccountInUse(err error) bool {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return false
	}
	return txErr.ErrorKey() == solana.TransactionErrorAccountInUse
}

func newBlockhash() (solana.Blockhash, error) {
	var blockhash solana.Blockhash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return blockhash, errors.Wrap(err, "error generating blockhash")
	}
	return blockhash, nil
}

func publicKey(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}
