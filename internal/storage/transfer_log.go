package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
)

// TransferLog records ownership transitions in ClickHouse. The table is
// append-only; provenance reads scan one asset's history ordered by time.
type TransferLog struct {
	db *ClickHouseDB
}

// NewTransferLog creates a transfer log over the ClickHouse connection.
func NewTransferLog(db *ClickHouseDB) *TransferLog {
	return &TransferLog{db: db}
}

// EnsureSchema creates the ownership_events table if it does not exist.
func (l *TransferLog) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ownership_events (
			event_time      DateTime64(3),
			collection_name String,
			local_id        String,
			asset_unit      String,
			policy_id       String,
			event_type      LowCardinality(String),
			from_owner      String,
			to_owner        String,
			address         String
		) ENGINE = MergeTree()
		ORDER BY (collection_name, local_id, event_time)
	`

	if err := l.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create ownership_events table: %w", err)
	}

	return nil
}

// Append writes one ownership transition.
func (l *TransferLog) Append(ctx context.Context, event *models.OwnershipTransfer) error {
	query := `
		INSERT INTO ownership_events
			(event_time, collection_name, local_id, asset_unit, policy_id, event_type, from_owner, to_owner, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := l.db.Exec(ctx, query,
		event.EventTime,
		event.CollectionName,
		event.LocalID,
		string(event.AssetUnit),
		string(event.PolicyID),
		string(event.EventType),
		event.FromOwner,
		event.ToOwner,
		event.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to append ownership event: %w", err)
	}

	return nil
}

// History returns every recorded transition for one asset, oldest first.
func (l *TransferLog) History(ctx context.Context, collectionName, localID string) ([]*models.OwnershipTransfer, error) {
	query := `
		SELECT event_time, collection_name, local_id, asset_unit, policy_id, event_type, from_owner, to_owner, address
		FROM ownership_events
		WHERE collection_name = ? AND local_id = ?
		ORDER BY event_time ASC
	`

	rows, err := l.db.Conn().Query(ctx, query, collectionName, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ownership events: %w", err)
	}
	defer rows.Close()

	var events []*models.OwnershipTransfer
	for rows.Next() {
		var (
			event     models.OwnershipTransfer
			eventTime time.Time
			assetUnit string
			policyID  string
			eventType string
		)
		err := rows.Scan(
			&eventTime,
			&event.CollectionName,
			&event.LocalID,
			&assetUnit,
			&policyID,
			&eventType,
			&event.FromOwner,
			&event.ToOwner,
			&event.Address,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ownership event: %w", err)
		}
		event.EventTime = eventTime
		event.AssetUnit = types.AssetUnit(assetUnit)
		event.PolicyID = types.PolicyID(policyID)
		event.EventType = types.OwnershipEvent(eventType)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ownership events: %w", err)
	}

	return events, nil
}
