package solana

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// TransactionErrorKey names a transaction level failure, using the keys of
// the Solana RPC error encoding.
type TransactionErrorKey string

const (
	TransactionErrorInternal                   TransactionErrorKey = "Internal"
	TransactionErrorAccountInUse               TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountLoadedTwice         TransactionErrorKey = "AccountLoadedTwice"
	TransactionErrorAccountNotFound            TransactionErrorKey = "AccountNotFound"
	TransactionErrorProgramAccountNotFound     TransactionErrorKey = "ProgramAccountNotFound"
	TransactionErrorInsufficientFundsForFee    TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorDuplicateSignature         TransactionErrorKey = "DuplicateSignature"
	TransactionErrorBlockhashNotFound          TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError           TransactionErrorKey = "InstructionError"
	TransactionErrorInvalidAccountIndex        TransactionErrorKey = "InvalidAccountIndex"
	TransactionErrorSignatureFailure           TransactionErrorKey = "SignatureFailure"
	TransactionErrorInvalidProgramForExecution TransactionErrorKey = "InvalidProgramForExecution"
	TransactionErrorSanitizeFailure            TransactionErrorKey = "SanitizeFailure"
	TransactionErrorUnsupportedVersion         TransactionErrorKey = "UnsupportedVersion"
)

// InstructionErrorKey names an instruction failure. Keys are errors, so
// programs return them directly (optionally wrapped) and callers match them
// with errors.Is.
type InstructionErrorKey string

const (
	InstructionErrorGenericError                InstructionErrorKey = "GenericError"
	InstructionErrorInvalidArgument             InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData      InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData          InstructionErrorKey = "InvalidAccountData"
	InstructionErrorAccountDataTooSmall         InstructionErrorKey = "AccountDataTooSmall"
	InstructionErrorInsufficientFunds           InstructionErrorKey = "InsufficientFunds"
	InstructionErrorIncorrectProgramID          InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorMissingRequiredSignature    InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized   InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorUninitializedAccount        InstructionErrorKey = "UninitializedAccount"
	InstructionErrorUnbalancedInstruction       InstructionErrorKey = "UnbalancedInstruction"
	InstructionErrorModifiedProgramID           InstructionErrorKey = "ModifiedProgramId"
	InstructionErrorExternalAccountLamportSpend InstructionErrorKey = "ExternalAccountLamportSpend"
	InstructionErrorExternalAccountDataModified InstructionErrorKey = "ExternalAccountDataModified"
	InstructionErrorReadonlyLamportChange       InstructionErrorKey = "ReadonlyLamportChange"
	InstructionErrorReadonlyDataModified        InstructionErrorKey = "ReadonlyDataModified"
	InstructionErrorExecutableModified          InstructionErrorKey = "ExecutableModified"
	InstructionErrorNotEnoughAccountKeys        InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorAccountNotExecutable        InstructionErrorKey = "AccountNotExecutable"
	InstructionErrorCustom                      InstructionErrorKey = "Custom"
	InstructionErrorUnsupportedProgramID        InstructionErrorKey = "UnsupportedProgramId"
	InstructionErrorCallDepth                   InstructionErrorKey = "CallDepth"
	InstructionErrorMissingAccount              InstructionErrorKey = "MissingAccount"
	InstructionErrorReentrancyNotAllowed        InstructionErrorKey = "ReentrancyNotAllowed"
	InstructionErrorMaxSeedLengthExceeded       InstructionErrorKey = "MaxSeedLengthExceeded"
	InstructionErrorInvalidSeeds                InstructionErrorKey = "InvalidSeeds"
	InstructionErrorPrivilegeEscalation         InstructionErrorKey = "PrivilegeEscalation"
	InstructionErrorIllegalOwner                InstructionErrorKey = "IllegalOwner"
	InstructionErrorArithmeticOverflow          InstructionErrorKey = "ArithmeticOverflow"
)

func (k InstructionErrorKey) Error() string {
	return string(k)
}

// CustomError is a program defined error code.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %#x", uint32(c))
}

// InstructionError is the failure of the instruction at Index. Err is always
// an InstructionErrorKey or a CustomError.
type InstructionError struct {
	Index int
	Err   error
}

// NewInstructionError normalizes an error returned by a program. Wrapped
// keys and custom errors are unwrapped. Anything else is a GenericError.
func NewInstructionError(index int, err error) *InstructionError {
	ie := &InstructionError{Index: index, Err: InstructionErrorGenericError}

	var custom CustomError
	var key InstructionErrorKey
	if errors.As(err, &custom) {
		ie.Err = custom
	} else if errors.As(err, &key) {
		ie.Err = key
	}
	return ie
}

func (e InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", e.Index, e.Err)
}

func (e InstructionError) Unwrap() error {
	return e.Err
}

// ErrorKey returns InstructionErrorCustom for program defined errors.
func (e InstructionError) ErrorKey() InstructionErrorKey {
	switch err := e.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	case InstructionErrorKey:
		return err
	default:
		return InstructionErrorKey(err.Error())
	}
}

func (e InstructionError) CustomError() *CustomError {
	if custom, ok := e.Err.(CustomError); ok {
		return &custom
	}
	return nil
}

// MarshalJSON encodes e as the RPC tuple, e.g. [0, "InvalidArgument"] or
// [2, {"Custom": 3}].
func (e InstructionError) MarshalJSON() ([]byte, error) {
	var detail interface{} = e.ErrorKey()
	if custom := e.CustomError(); custom != nil {
		detail = map[InstructionErrorKey]uint32{InstructionErrorCustom: uint32(*custom)}
	}
	return json.Marshal([]interface{}{e.Index, detail})
}

// TransactionError is returned when a transaction is rejected. Instruction
// failures carry the failing *InstructionError.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key}
}

// NewInstructionTransactionError wraps an instruction failure.
func NewInstructionTransactionError(err *InstructionError) *TransactionError {
	return &TransactionError{
		key:         TransactionErrorInstructionError,
		instruction: err,
	}
}

func (t TransactionError) Error() string {
	if t.instruction != nil {
		return t.instruction.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instruction
}

func (t TransactionError) Unwrap() error {
	if t.instruction == nil {
		return nil
	}
	return *t.instruction
}

// MarshalJSON encodes t the way the RPC reports transaction errors, either
// "Key" or {"InstructionError": [index, detail]}.
func (t TransactionError) MarshalJSON() ([]byte, error) {
	if t.instruction == nil {
		return json.Marshal(t.key)
	}
	return json.Marshal(map[TransactionErrorKey]*InstructionError{
		TransactionErrorInstructionError: t.instruction,
	})
}
