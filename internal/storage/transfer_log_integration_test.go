package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nft-inventory/internal/config"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTransferLog connects to the local ClickHouse instance, skipping when
// it is not reachable.
func setupTransferLog(t *testing.T) *TransferLog {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.ClickHouseConfig{
		Host:     "localhost",
		Port:     "9000",
		Database: "nft_inventory",
		User:     "default",
		Password: "",
	}

	db, err := NewClickHouseDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - ClickHouse not available: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = db.Close() })

	log := NewTransferLog(db)
	require.NoError(t, log.EnsureSchema(testContext(t)))
	return log
}

func TestTransferLogAppendAndHistory(t *testing.T) {
	log := setupTransferLog(t)
	ctx := testContext(t)

	collection := "IT_" + uuid.NewString()[:8]
	base := time.Now().UTC().Truncate(time.Millisecond)

	events := []*models.OwnershipTransfer{
		{
			EventTime:      base,
			CollectionName: collection,
			LocalID:        "CW7",
			AssetUnit:      "8f80ebfa00",
			PolicyID:       "8f80ebfaf62a8c33ae2adf047572604c74db8bc1daba2b43f9a65635",
			EventType:      types.EventClaimed,
			ToOwner:        "userA",
			Address:        "addr1qxyz",
		},
		{
			EventTime:      base.Add(time.Second),
			CollectionName: collection,
			LocalID:        "CW7",
			AssetUnit:      "8f80ebfa00",
			PolicyID:       "8f80ebfaf62a8c33ae2adf047572604c74db8bc1daba2b43f9a65635",
			EventType:      types.EventTransferred,
			FromOwner:      "userA",
			ToOwner:        "userB",
			Address:        "addr1v9abc",
		},
	}
	for _, event := range events {
		require.NoError(t, log.Append(ctx, event))
	}

	got, err := log.History(ctx, collection, "CW7")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, types.EventClaimed, got[0].EventType)
	assert.Equal(t, "userA", got[0].ToOwner)
	assert.Equal(t, types.EventTransferred, got[1].EventType)
	assert.Equal(t, "userA", got[1].FromOwner)
	assert.Equal(t, "userB", got[1].ToOwner)
	assert.WithinDuration(t, base, got[0].EventTime, 10*time.Millisecond)
}

func TestTransferLogHistoryIsScopedToOneAsset(t *testing.T) {
	log := setupTransferLog(t)
	ctx := testContext(t)

	collection := "IT_" + uuid.NewString()[:8]
	now := time.Now().UTC()

	require.NoError(t, log.Append(ctx, &models.OwnershipTransfer{
		EventTime: now, CollectionName: collection, LocalID: "CW1",
		EventType: types.EventClaimed, ToOwner: "userA",
	}))
	require.NoError(t, log.Append(ctx, &models.OwnershipTransfer{
		EventTime: now, CollectionName: collection, LocalID: "CW2",
		EventType: types.EventClaimed, ToOwner: "userB",
	}))

	got, err := log.History(ctx, collection, "CW1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CW1", got[0].LocalID)

	got, err = log.History(ctx, collection, "CW404")
	require.NoError(t, err)
	assert.Empty(t, got)
}
