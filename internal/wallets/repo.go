package wallets

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

// Repository manages wallet rows and their append-only transaction log.
// Nothing here updates or deletes a transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	List(ctx context.Context, filter ListFilter) ([]models.Wallet, error)
	ListIDs(ctx context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
	AllTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
}

// ListFilter narrows wallet listings.
type ListFilter struct {
	LocationID *uuid.UUID
	Currency   *enums.Currency
}

type repository struct {
	repo.Base
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.DB(ctx).Create(wallet).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.DB(ctx).Where("id = ?", id).Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockByID selects the wallet with a row lock held until the surrounding
// transaction ends.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.ForUpdate(ctx).Where("id = ?", id).Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpdateBalance writes balance only if the row still carries expectedVersion,
// bumping the version. A lost race returns db.ErrStaleWrite.
func (r *repository) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, balance decimal.Decimal) error {
	res := r.DB(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrStaleWrite
	}
	return nil
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.DB(ctx).Create(txn).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Wallet, error) {
	query := r.DB(ctx).Model(&models.Wallet{})
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	var rows []models.Wallet
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListIDs pages through wallet ids in ascending order for batch jobs.
func (r *repository) ListIDs(ctx context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.DB(ctx).Model(&models.Wallet{})
	if after != nil {
		query = query.Where("id > ?", *after)
	}
	var ids []uuid.UUID
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	query := r.DB(ctx).Model(&models.WalletTransaction{}).Where("wallet_id = ?", walletID)
	query = pagination.ApplyNewestFirst(query, cursor, limit)

	var rows []models.WalletTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AllTransactions returns the full log oldest first, the order replay uses.
func (r *repository) AllTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if err := r.DB(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
