package tests

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
)

func RunTests(t *testing.T, s receipt.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s receipt.Store){
		testHappyPath,
		testOptionalFields,
		testGetAllByCollateral,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s receipt.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		id := uuid.New()

		_, err := s.Get(ctx, id)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		start := time.Now()

		expected := &receipt.Record{
			Id:                      id,
			Path:                    receipt.PathMultisig,
			ChainId:                 901,
			Collateral:              "collateral",
			Recipient:               "recipient",
			Asset:                   "asset",
			Amount:                  math.MaxUint64,
			TransactionSignature:    "signature",
			SignatureRecord:         "record",
			SourceTokenAccount:      "source",
			DestinationTokenAccount: "destination",
			Status:                  receipt.StatusConfirmed,
		}
		cloned := expected.Clone()

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.CreatedAt.After(start))

		actual, err := s.Get(ctx, id)
		require.NoError(t, err)
		assertEquivalentRecords(t, actual, &cloned)

		assert.Equal(t, receipt.ErrReceiptExists, s.Put(ctx, expected))
	})
}

func testOptionalFields(t *testing.T, s receipt.Store) {
	t.Run("testOptionalFields", func(t *testing.T) {
		ctx := context.Background()

		failed := &receipt.Record{
			Id:         uuid.New(),
			Path:       receipt.PathSingleSigner,
			ChainId:    900,
			Collateral: "collateral",
			Recipient:  "recipient",
			Asset:      "11111111111111111111111111111111",
			Amount:     1,
			Status:     receipt.StatusFailed,
			ErrorKind:  "stale_nonce",
		}
		require.NoError(t, s.Put(ctx, failed))

		actual, err := s.Get(ctx, failed.Id)
		require.NoError(t, err)
		assert.Equal(t, receipt.StatusFailed, actual.Status)
		assert.Equal(t, "stale_nonce", actual.ErrorKind)
		assert.Empty(t, actual.TransactionSignature)
		assert.Empty(t, actual.SignatureRecord)
		assert.Empty(t, actual.SourceTokenAccount)
		assert.Empty(t, actual.DestinationTokenAccount)
	})
}

func testGetAllByCollateral(t *testing.T, s receipt.Store) {
	t.Run("testGetAllByCollateral", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByCollateral(ctx, "collateral", 0)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		start := time.Now().Add(-time.Hour)

		var ids []uuid.UUID
		for i := 0; i < 5; i++ {
			record := &receipt.Record{
				Id:                   uuid.New(),
				Path:                 receipt.PathPrepare,
				ChainId:              901,
				Collateral:           "collateral",
				Recipient:            "recipient",
				Asset:                "asset",
				Amount:               uint64(i + 1),
				Status:               receipt.StatusPrepared,
				CreatedAt:            start.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, s.Put(ctx, record))
			ids = append(ids, record.Id)
		}

		other := &receipt.Record{
			Id:                   uuid.New(),
			Path:                 receipt.PathMultisig,
			ChainId:              901,
			Collateral:           "other",
			Recipient:            "recipient",
			Asset:                "asset",
			Amount:               1,
			TransactionSignature: "signature",
			Status:               receipt.StatusConfirmed,
		}
		require.NoError(t, s.Put(ctx, other))

		actual, err := s.GetAllByCollateral(ctx, "collateral", 0)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.Equal(t, ids[len(ids)-1-i], record.Id)
		}

		actual, err = s.GetAllByCollateral(ctx, "collateral", 2)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, ids[4], actual[0].Id)
		assert.Equal(t, ids[3], actual[1].Id)
	})
}

func testValidation(t *testing.T, s receipt.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		valid := receipt.Record{
			Id:                   uuid.New(),
			Path:                 receipt.PathMultisig,
			ChainId:              901,
			Collateral:           "collateral",
			Recipient:            "recipient",
			Asset:                "asset",
			TransactionSignature: "signature",
			Status:               receipt.StatusConfirmed,
		}

		for _, mutate := range []func(r *receipt.Record){
			func(r *receipt.Record) { r.Id = uuid.Nil },
			func(r *receipt.Record) { r.Path = "unknown" },
			func(r *receipt.Record) { r.ChainId = 0 },
			func(r *receipt.Record) { r.Collateral = "" },
			func(r *receipt.Record) { r.Recipient = "" },
			func(r *receipt.Record) { r.Asset = "" },
			func(r *receipt.Record) { r.TransactionSignature = "" },
			func(r *receipt.Record) { r.Status = receipt.StatusPrepared },
			func(r *receipt.Record) { r.Status = receipt.StatusFailed },
			func(r *receipt.Record) { r.Status = "" },
		} {
			record := valid.Clone()
			mutate(&record)
			assert.Error(t, s.Put(ctx, &record))
		}

		_, err := s.Get(ctx, valid.Id)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *receipt.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Path, obj2.Path)
	assert.Equal(t, obj1.ChainId, obj2.ChainId)
	assert.Equal(t, obj1.Collateral, obj2.Collateral)
	assert.Equal(t, obj1.Recipient, obj2.Recipient)
	assert.Equal(t, obj1.Asset, obj2.Asset)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.TransactionSignature, obj2.TransactionSignature)
	assert.Equal(t, obj1.SignatureRecord, obj2.SignatureRecord)
	assert.Equal(t, obj1.SourceTokenAccount, obj2.SourceTokenAccount)
	assert.Equal(t, obj1.DestinationTokenAccount, obj2.DestinationTokenAccount)
	assert.Equal(t, obj1.Status, obj2.Status)
	assert.Equal(t, obj1.ErrorKind, obj2.ErrorKind)
}
