package tests

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/data/account"
	"github.com/code-payments/code-escrow/pkg/database/query"
)

func RunTests(t *testing.T, s account.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s account.Store){
		testRoundTrip,
		testBatchSave,
		testZeroBalanceDeletes,
		testGetMany,
		testGetAllByOwner,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s account.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now().Add(-time.Second)

		expected := &account.Record{
			Address:  newKey(t),
			Owner:    newKey(t),
			Lamports: 1_000_000,
			Data:     []byte{1, 2, 3, 4},
			Slot:     7,
		}
		cloned := expected.Clone()

		_, err := s.Get(ctx, expected.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.True(t, expected.LastUpdatedAt.After(start))

		actual, err := s.Get(ctx, cloned.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		expected.Lamports = 42
		expected.Data = nil
		expected.Owner = newKey(t)
		expected.Executable = true
		expected.Slot = 8
		id := expected.Id
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))
		assert.Equal(t, id, expected.Id)

		actual, err = s.Get(ctx, cloned.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testBatchSave(t *testing.T, s account.Store) {
	t.Run("testBatchSave", func(t *testing.T) {
		ctx := context.Background()

		var records []*account.Record
		for i := 0; i < 5; i++ {
			records = append(records, &account.Record{
				Address:  newKey(t),
				Owner:    newKey(t),
				Lamports: uint64(i + 1),
				Data:     make([]byte, i),
			})
		}
		require.NoError(t, s.Save(ctx, records...))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, len(records), count)

		// An invalid record anywhere in the batch rejects the whole batch.
		valid := &account.Record{
			Address:  newKey(t),
			Owner:    newKey(t),
			Lamports: 1,
		}
		invalid := &account.Record{
			Address:  "not-a-key",
			Owner:    newKey(t),
			Lamports: 1,
		}
		assert.Error(t, s.Save(ctx, valid, invalid))

		_, err = s.Get(ctx, valid.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, len(records), count)
	})
}

func testZeroBalanceDeletes(t *testing.T, s account.Store) {
	t.Run("testZeroBalanceDeletes", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  newKey(t),
			Owner:    newKey(t),
			Lamports: 100,
			Data:     make([]byte, 121),
		}
		require.NoError(t, s.Save(ctx, record))

		record.Lamports = 0
		require.NoError(t, s.Save(ctx, record))

		_, err := s.Get(ctx, record.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		// Deleting an account that never existed is a no-op
		require.NoError(t, s.Save(ctx, &account.Record{Address: newKey(t)}))
	})
}

func testGetMany(t *testing.T, s account.Store) {
	t.Run("testGetMany", func(t *testing.T) {
		ctx := context.Background()

		res, err := s.GetMany(ctx)
		require.NoError(t, err)
		assert.Empty(t, res)

		first := &account.Record{Address: newKey(t), Owner: newKey(t), Lamports: 1}
		second := &account.Record{Address: newKey(t), Owner: newKey(t), Lamports: 2, Data: []byte{9}}
		require.NoError(t, s.Save(ctx, first, second))

		missing := newKey(t)
		res, err = s.GetMany(ctx, first.Address, missing, second.Address)
		require.NoError(t, err)
		require.Len(t, res, 2)

		assertEquivalentRecords(t, first, res[first.Address])
		assertEquivalentRecords(t, second, res[second.Address])
		_, ok := res[missing]
		assert.False(t, ok)
	})
}

func testGetAllByOwner(t *testing.T, s account.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		owner := newKey(t)

		_, err := s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)

		var expected []*account.Record
		for i := 0; i < 5; i++ {
			record := &account.Record{
				Address:  newKey(t),
				Owner:    owner,
				Lamports: uint64(i + 1),
			}
			require.NoError(t, s.Save(ctx, record))
			expected = append(expected, record)
		}
		require.NoError(t, s.Save(ctx, &account.Record{Address: newKey(t), Owner: newKey(t), Lamports: 1}))

		actual, err := s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, len(expected))
		for i := range expected {
			assertEquivalentRecords(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, len(expected))
		for i := range expected {
			assertEquivalentRecords(t, expected[len(expected)-1-i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, owner, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[0], actual[0])
		assertEquivalentRecords(t, expected[1], actual[1])

		actual, err = s.GetAllByOwner(ctx, owner, query.ToCursor(actual[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentRecords(t, expected[2], actual[0])

		_, err = s.GetAllByOwner(ctx, owner, query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testValidation(t *testing.T, s account.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		for _, invalid := range []*account.Record{
			{Owner: newKey(t), Lamports: 1},
			{Address: newKey(t), Lamports: 1},
			{Address: newKey(t), Owner: "invalid", Lamports: 1},
		} {
			assert.Error(t, s.Save(ctx, invalid))
		}

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *account.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.True(t, bytes.Equal(obj1.Data, obj2.Data))
	assert.Equal(t, obj1.Executable, obj2.Executable)
	assert.Equal(t, obj1.Slot, obj2.Slot)
}

func newKey(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}
