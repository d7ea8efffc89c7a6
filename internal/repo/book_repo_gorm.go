package repo

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/dukeofgo/librarius/internal/domain"
)

type BookRepo struct{ db *gorm.DB }

func NewBookRepo(db *gorm.DB) *BookRepo { return &BookRepo{db: db} }

func (r *BookRepo) Create(ctx context.Context, b *domain.Book) error {
	err := r.db.WithContext(ctx).Omit("Borrower").Create(b).Error
	if isDupKey(err) {
		return domain.ErrDuplicateISBN
	}
	return err
}

func (r *BookRepo) first(ctx context.Context, query string, arg any) (*domain.Book, error) {
	var b domain.Book
	err := r.db.WithContext(ctx).Preload("Borrower").First(&b, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepo) FindByID(ctx context.Context, id uint) (*domain.Book, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *BookRepo) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.first(ctx, "isbn = ?", isbn)
}

func (r *BookRepo) FindByISBNOrID(ctx context.Context, key string) (*domain.Book, error) {
	if isbn, ok := domain.NormalizeISBN(key); ok {
		b, err := r.FindByISBN(ctx, isbn)
		if !errors.Is(err, domain.ErrBookNotFound) {
			return b, err
		}
	}
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil || id == 0 {
		return nil, domain.ErrBookNotFound
	}
	return r.FindByID(ctx, uint(id))
}

func (r *BookRepo) List(ctx context.Context, offset, limit int) ([]domain.Book, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Book{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []domain.Book
	if err := tx.Preload("Borrower").Order("id asc").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListByBorrower 用户当前借阅的书（反向查询，不在 User 上维护集合）
func (r *BookRepo) ListByBorrower(ctx context.Context, userID uint) ([]domain.Book, error) {
	var books []domain.Book
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_borrowed = ?", userID, true).
		Order("id asc").
		Find(&books).Error
	return books, err
}

func (r *BookRepo) Update(ctx context.Context, id uint, cols map[string]any) (*domain.Book, error) {
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&domain.Book{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.FindByID(ctx, id)
}

// Delete 借出中的书不能删
func (r *BookRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND is_borrowed = ?", id, false).Delete(&domain.Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Book{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrActiveLoan
	}
	return domain.ErrBookNotFound
}

// Transition 单条条件 UPDATE：
//
//	borrow: WHERE id = ? AND is_borrowed = false
//	return: WHERE id = ? AND is_borrowed = true AND user_id = ?
//
// 并发下只有一个请求能命中，其余 RowsAffected = 0。
func (r *BookRepo) Transition(ctx context.Context, id uint, t domain.LoanTransition) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("id = ? AND is_borrowed = ?", id, t.ExpectBorrowed)
	if t.ExpectBorrowerID != nil {
		q = q.Where("user_id = ?", *t.ExpectBorrowerID)
	}
	res := q.Updates(t.Columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookRepo) CountActiveLoans(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("user_id = ? AND is_borrowed = ?", userID, true).
		Count(&n).Error
	return n, err
}
