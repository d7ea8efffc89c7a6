package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Book struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ISBN          string `gorm:"uniqueIndex;size:13;not null" json:"isbn"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Author        string `gorm:"size:255;not null" json:"author"`
	Edition       string `gorm:"size:128" json:"edition"`
	Publisher     string `gorm:"size:255" json:"publisher"`
	PublishDate   string `gorm:"size:64" json:"publish_date"`
	PublishPlace  string `gorm:"size:128" json:"publish_place"`
	NumberOfPages *int   `json:"number_of_pages"`
	Description   string `gorm:"type:text" json:"description"`
	Language      string `gorm:"size:64" json:"language"`
	LCCN          string `gorm:"size:64" json:"lccn"`
	Subtitle      string `gorm:"size:255" json:"subtitle"`
	Subjects      string `gorm:"size:255" json:"subjects"`

	// 借阅字段：四个字段只能通过 LoanTransition 一起改
	UserID       *uint           `gorm:"index" json:"user_id"`
	Borrower     *User           `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"borrower,omitempty"`
	BorrowedDate *datatypes.Date `json:"borrowed_date"`
	ReturnedDate *datatypes.Date `json:"returned_date"`
	IsBorrowed   bool            `gorm:"not null;index" json:"is_borrowed"`

	// base64 文本
	CoverImage string         `gorm:"type:text" json:"-"`
	AddedDate  datatypes.Date `json:"added_date"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (Book) TableName() string { return "books" }

func (b *Book) HasCover() bool { return b.CoverImage != "" }

// PDFKey 对象存储中的 PDF 键
func (b *Book) PDFKey() string { return PDFKey(b.ISBN) }

func PDFKey(isbn string) string { return isbn + ".pdf" }

var errLoanInvariant = errors.New("lending fields out of sync")

// CheckLoan 校验借阅不变式。从未借出的书 returned_date 可以为空。
func (b *Book) CheckLoan() error {
	if b.IsBorrowed {
		if b.UserID == nil || b.BorrowedDate == nil || b.ReturnedDate != nil {
			return errLoanInvariant
		}
		return nil
	}
	if b.UserID != nil || b.BorrowedDate != nil {
		return errLoanInvariant
	}
	return nil
}

// NormalizeISBN 去掉连字符和空白，只接受 10 位或 13 位
func NormalizeISBN(raw string) (string, bool) {
	s := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	switch len(s) {
	case 10:
		for i, r := range s {
			if r >= '0' && r <= '9' {
				continue
			}
			if i == 9 && (r == 'X' || r == 'x') {
				continue
			}
			return "", false
		}
		return strings.ToUpper(s), true
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return "", false
			}
		}
		return s, true
	}
	return "", false
}

type BookRepository interface {
	Create(ctx context.Context, b *Book) error
	FindByID(ctx context.Context, id uint) (*Book, error)
	FindByISBN(ctx context.Context, isbn string) (*Book, error)
	// FindByISBNOrID 先按 isbn 查，查不到且 key 为数字时按 id 查
	FindByISBNOrID(ctx context.Context, key string) (*Book, error)
	List(ctx context.Context, offset, limit int) ([]Book, int64, error)
	ListByBorrower(ctx context.Context, userID uint) ([]Book, error)
	Update(ctx context.Context, id uint, cols map[string]any) (*Book, error)
	Delete(ctx context.Context, id uint) error
	// Transition 条件更新：只有当前状态仍满足前置条件时才写入，返回是否生效
	Transition(ctx context.Context, id uint, t LoanTransition) (bool, error)
	CountActiveLoans(ctx context.Context, userID uint) (int64, error)
}

// Store 聚合仓储，Tx 内的所有读写共享同一事务
type Store interface {
	Books() BookRepository
	Users() UserRepository
	Tx(ctx context.Context, fn func(Store) error) error
}
