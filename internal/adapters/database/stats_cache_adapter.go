package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/repositories"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/clients/postgres"
	apperrors "github.com/motorvalue/vehicle-valuation/pkg/errors"
)

// StatsCacheAdapter implements StatsCacheRepository on PostgreSQL.
// Expiry is lazy: a read past expires_at reports not-found and leaves the
// row for Purge to collect.
type StatsCacheAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewStatsCacheAdapter creates a new stats cache adapter
func NewStatsCacheAdapter(client *postgres.Client) repositories.StatsCacheRepository {
	return &StatsCacheAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

const statsCacheTable = "market_stats_cache"

// GetCachedStats retrieves an unexpired record by query hash
func (a *StatsCacheAdapter) GetCachedStats(ctx context.Context, queryHash string) (*entities.CachedQueryRecord, error) {
	query, args, err := a.db.Select(
		"query_hash", "filter_payload", "source", "listing_count",
		"p25", "p50", "p75", "min_price", "max_price", "iqr_ratio",
		"dealer_count", "private_count", "created_at", "updated_at", "expires_at",
	).From(statsCacheTable).
		Where(goqu.Ex{"query_hash": queryHash}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record := &entities.CachedQueryRecord{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&record.QueryHash,
		&record.FilterPayload,
		&record.Source,
		&record.ListingCount,
		&record.P25,
		&record.P50,
		&record.P75,
		&record.MinPrice,
		&record.MaxPrice,
		&record.IQRRatio,
		&record.DealerCount,
		&record.PrivateCount,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("no cached stats for query")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cached stats", err)
	}

	if record.Expired(time.Now().UTC()) {
		return nil, apperrors.NewNotFoundError("cached stats expired")
	}

	return record, nil
}

// UpsertStats writes or refreshes a record keyed by query hash
func (a *StatsCacheAdapter) UpsertStats(ctx context.Context, record *entities.CachedQueryRecord) error {
	row := goqu.Record{
		"query_hash":     record.QueryHash,
		"filter_payload": record.FilterPayload,
		"source":         record.Source,
		"listing_count":  record.ListingCount,
		"p25":            record.P25,
		"p50":            record.P50,
		"p75":            record.P75,
		"min_price":      record.MinPrice,
		"max_price":      record.MaxPrice,
		"iqr_ratio":      record.IQRRatio,
		"dealer_count":   record.DealerCount,
		"private_count":  record.PrivateCount,
		"created_at":     record.CreatedAt,
		"updated_at":     record.UpdatedAt,
		"expires_at":     record.ExpiresAt,
	}

	update := goqu.Record{
		"filter_payload": record.FilterPayload,
		"source":         record.Source,
		"listing_count":  record.ListingCount,
		"p25":            record.P25,
		"p50":            record.P50,
		"p75":            record.P75,
		"min_price":      record.MinPrice,
		"max_price":      record.MaxPrice,
		"iqr_ratio":      record.IQRRatio,
		"dealer_count":   record.DealerCount,
		"private_count":  record.PrivateCount,
		"updated_at":     record.UpdatedAt,
		"expires_at":     record.ExpiresAt,
	}

	query, args, err := a.db.Insert(statsCacheTable).
		Rows(row).
		OnConflict(goqu.DoUpdate("query_hash", update)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert cached stats", err)
	}

	return nil
}

// Purge physically removes expired records
func (a *StatsCacheAdapter) Purge(ctx context.Context, now time.Time) (int, error) {
	query, args, err := a.db.Delete(statsCacheTable).
		Where(goqu.C("expires_at").Lt(now)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build purge query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to purge cached stats", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
