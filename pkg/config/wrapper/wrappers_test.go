package wrapper

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/memory"
)

type wrapperTestCase[T any] struct {
	defaultValue   T
	overridenValue T
	validBytes     []byte
	validBytesVal  T
	invalidBytes   []byte
	unsupported    interface{}
}

func runWrapperTest[T any](t *testing.T, newConfig func(config.Config, T) config.Typed[T], tc wrapperTestCase[T]) {
	ctx := context.Background()
	mock := memory.NewConfig(nil)
	wrapper := newConfig(mock, tc.defaultValue)

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, tc.defaultValue, val)
	assert.Equal(t, tc.defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.SetValue(tc.overridenValue)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, tc.overridenValue, val)
	assert.Equal(t, tc.overridenValue, wrapper.Get(ctx))

	// The last observed config value is returned on error
	mock.InduceErrors()
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, tc.overridenValue, val)
	assert.Equal(t, tc.overridenValue, wrapper.Get(ctx))

	// The default value is returned when the override no longer has a value
	mock.StopInducingErrors()
	mock.ClearValue()
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, tc.defaultValue, val)

	// Verify conversion from a byte array, as provided by env configs
	mock.SetValue(tc.validBytes)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, tc.validBytesVal, val)

	// Invalid byte array values keep the last observed value
	if tc.invalidBytes != nil {
		mock.SetValue(tc.invalidBytes)
		val, err = wrapper.GetSafe(ctx)
		require.Error(t, err)
		assert.Equal(t, tc.validBytesVal, val)
	}

	// Return an unsupported source value type
	mock.SetValue(tc.unsupported)
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, tc.validBytesVal, val)
	assert.Equal(t, tc.validBytesVal, wrapper.Get(ctx))

	// Shutdown the config via the wrapper
	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestBoolConfig(t *testing.T) {
	runWrapperTest(t, NewBoolConfig, wrapperTestCase[bool]{
		defaultValue:   true,
		overridenValue: false,
		validBytes:     []byte(strconv.FormatBool(true)),
		validBytesVal:  true,
		invalidBytes:   []byte("cannot convert"),
		unsupported:    "not supported",
	})
}

func TestUint64Config(t *testing.T) {
	runWrapperTest(t, NewUint64Config, wrapperTestCase[uint64]{
		defaultValue:   math.MaxUint64,
		overridenValue: 0,
		validBytes:     []byte(strconv.FormatUint(3480, 10)),
		validBytesVal:  3480,
		invalidBytes:   []byte("-1"),
		unsupported:    "not supported",
	})

	mock := memory.NewConfig(uint(42))
	assert.EqualValues(t, 42, NewUint64Config(mock, 0).Get(context.Background()))
}

func TestDurationConfig(t *testing.T) {
	runWrapperTest(t, NewDurationConfig, wrapperTestCase[time.Duration]{
		defaultValue:   30 * time.Second,
		overridenValue: -2 * time.Hour,
		validBytes:     []byte((50 * time.Millisecond).String()),
		validBytesVal:  50 * time.Millisecond,
		invalidBytes:   []byte("cannot convert"),
		unsupported:    "not supported",
	})
}

func TestStringConfig(t *testing.T) {
	runWrapperTest(t, NewStringConfig, wrapperTestCase[string]{
		defaultValue:   "default",
		overridenValue: "override",
		validBytes:     []byte("postgres://localhost"),
		validBytesVal:  "postgres://localhost",
		unsupported:    1234,
	})
}
