package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id uint) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByFirebaseUID(ctx context.Context, firebaseUID string) (*models.Account, error)
	GetAccountsByIDs(ctx context.Context, ids []uint) (map[uint]models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	SetNotificationsReadAt(ctx context.Context, id uint, at time.Time) error
}

// PostgresAccountRepository implements AccountRepository with gorm
type PostgresAccountRepository struct {
	db *gorm.DB
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository
func NewPostgresAccountRepository(db *gorm.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	return duplicate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *PostgresAccountRepository) GetAccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *PostgresAccountRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *PostgresAccountRepository) GetAccountByFirebaseUID(ctx context.Context, firebaseUID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// GetAccountsByIDs loads a set of accounts keyed by id. Unknown ids are skipped.
func (r *PostgresAccountRepository) GetAccountsByIDs(ctx context.Context, ids []uint) (map[uint]models.Account, error) {
	out := make(map[uint]models.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var accounts []models.Account
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func (r *PostgresAccountRepository) UpdateAccount(ctx context.Context, account *models.Account) error {
	return duplicate(r.db.WithContext(ctx).Save(account).Error)
}

// SetNotificationsReadAt moves the read watermark of an account.
func (r *PostgresAccountRepository) SetNotificationsReadAt(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Update("last_notifications_read_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
