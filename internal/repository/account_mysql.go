package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderscan-api/internal/model"

	"go.uber.org/zap"
)

// MySQLAccountRepository implements AccountRepository using MySQL.
type MySQLAccountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLAccountRepository creates a new MySQL account repository.
func NewMySQLAccountRepository(db *sql.DB, logger *zap.Logger) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db, logger: logger}
}

// ValidateTerminalKey validates a key+device combination for token generation.
// Returns account details if valid, error otherwise.
func (r *MySQLAccountRepository) ValidateTerminalKey(ctx context.Context, key, deviceID string) (*model.TerminalValidation, error) {
	query := `
		SELECT
			ta.id as account_id,
			ta.key_id,
			ta.name,
			ta.device_id,
			tk.status as key_status
		FROM terminal_accounts ta
		JOIN terminal_keys tk ON ta.key_id = tk.id
		WHERE tk.` + "`key`" + ` = ?
		  AND ta.is_active = 1
		  AND LOWER(tk.status) = 'active'
		LIMIT 1`

	var result model.TerminalValidation
	var boundDevice sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&result.AccountID,
		&result.KeyID,
		&result.AccountName,
		&boundDevice,
		&result.KeyStatus,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invalid key or account not found")
		}
		return nil, fmt.Errorf("failed to validate key: %w", err)
	}
	result.DeviceID = boundDevice.String

	// A key already bound to a device only works from that device.
	if result.DeviceID != "" && result.DeviceID != deviceID {
		return nil, fmt.Errorf("device mismatch")
	}

	// Bind the device on first use.
	if result.DeviceID == "" && deviceID != "" {
		updateQuery := `UPDATE terminal_accounts SET device_id = ? WHERE id = ?`
		if _, err := r.db.ExecContext(ctx, updateQuery, deviceID, result.AccountID); err != nil {
			r.logger.Warn("failed to bind device to terminal account",
				zap.Int64("account_id", result.AccountID),
				zap.Error(err))
		}
		result.DeviceID = deviceID
	}

	return &result, nil
}

// Ensure MySQLAccountRepository implements AccountRepository
var _ AccountRepository = (*MySQLAccountRepository)(nil)
