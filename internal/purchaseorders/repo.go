package purchaseorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

// Repository persists purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, details DetailsUpdate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseOrderStatus, cancelledAt *time.Time) error
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error
	IncrementReceived(ctx context.Context, lineID uuid.UUID, qty int) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error)
}

// DetailsUpdate carries the editable header fields of a pending order.
type DetailsUpdate struct {
	SupplierID      *uuid.UUID
	TotalAmount     decimal.Decimal
	Notes           *string
	ExpectedArrival *time.Time
}

// ListFilter narrows List. Nil fields are ignored.
type ListFilter struct {
	Status     *enums.PurchaseOrderStatus
	LocationID *uuid.UUID
	SupplierID *uuid.UUID
	WalletID   *uuid.UUID
}

type repository struct {
	repo.Base
}

// NewRepository returns a purchase order repository bound to db.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// Create inserts the order header and then its lines.
func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	conn := r.DB(ctx)
	if err := conn.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		return nil
	}
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
	}
	return conn.Create(&order.Lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.DB(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

// LockByID selects the order header FOR UPDATE and loads its lines.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.ForUpdate(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *repository) lines(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderLine, error) {
	var lines []models.PurchaseOrderLine
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) UpdateDetails(ctx context.Context, id uuid.UUID, details DetailsUpdate) error {
	return r.DB(ctx).Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"supplier_id":      details.SupplierID,
			"total_amount":     details.TotalAmount,
			"notes":            details.Notes,
			"expected_arrival": details.ExpectedArrival,
		}).Error
}

// UpdateStatus moves the order from one status to another. The write only
// lands while the row still carries from; otherwise db.ErrStaleWrite.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseOrderStatus, cancelledAt *time.Time) error {
	fields := map[string]any{"status": to}
	if cancelledAt != nil {
		fields["cancelled_at"] = *cancelledAt
	}
	res := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrStaleWrite
	}
	return nil
}

func (r *repository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error {
	conn := r.DB(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	return conn.Create(&lines).Error
}

// IncrementReceived books qty against the line. The update is guarded so
// quantity_received can never pass quantity; a miss returns db.ErrStaleWrite.
func (r *repository) IncrementReceived(ctx context.Context, lineID uuid.UUID, qty int) error {
	res := r.DB(ctx).Model(&models.PurchaseOrderLine{}).
		Where("id = ? AND quantity_received + ? <= quantity", lineID, qty).
		Updates(map[string]any{
			"quantity_received": gorm.Expr("quantity_received + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrStaleWrite
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.DB(ctx)
	if err := conn.Where("order_id = ?", id).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", id).Delete(&models.PurchaseOrder{}).Error
}

// List returns order headers newest first without lines.
func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error) {
	query := r.DB(ctx).Model(&models.PurchaseOrder{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.WalletID != nil {
		query = query.Where("wallet_id = ?", *filter.WalletID)
	}
	query = pagination.ApplyNewestFirst(query, cursor, limit)

	var rows []models.PurchaseOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
