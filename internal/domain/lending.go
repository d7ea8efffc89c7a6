package domain

import (
	"time"

	"gorm.io/datatypes"
)

type LoanOp string

const (
	OpBorrow LoanOp = "borrow"
	OpReturn LoanOp = "return"
)

// LoanTransition 一次借/还状态迁移。Expect* 是条件更新的前置条件，
// 其余字段是要原子写入的四个借阅字段。
type LoanTransition struct {
	Op LoanOp

	ExpectBorrowed   bool
	ExpectBorrowerID *uint

	BorrowerID   *uint
	BorrowedDate *datatypes.Date
	ReturnedDate *datatypes.Date
	IsBorrowed   bool

	borrower *User
}

// Columns 四个借阅字段，nil 指针写成 NULL
func (t LoanTransition) Columns() map[string]any {
	cols := map[string]any{
		"is_borrowed":   t.IsBorrowed,
		"user_id":       nil,
		"borrowed_date": nil,
		"returned_date": nil,
	}
	if t.BorrowerID != nil {
		cols["user_id"] = *t.BorrowerID
	}
	if t.BorrowedDate != nil {
		cols["borrowed_date"] = *t.BorrowedDate
	}
	if t.ReturnedDate != nil {
		cols["returned_date"] = *t.ReturnedDate
	}
	return cols
}

// Apply 把迁移结果同步到内存中的 Book
func (t LoanTransition) Apply(b *Book) {
	b.IsBorrowed = t.IsBorrowed
	b.UserID = t.BorrowerID
	b.BorrowedDate = t.BorrowedDate
	b.ReturnedDate = t.ReturnedDate
	b.Borrower = t.borrower
}

// DateOf 截断到 UTC 日期
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func datePtr(t time.Time) *datatypes.Date {
	v := DateOf(t)
	return &v
}

// DecideBorrow 借书：书已借出（不论借给谁）即冲突。
// enforceEligibility 打开时还要求用户 is_active 且 is_borrower。
func DecideBorrow(b *Book, u *User, enforceEligibility bool, today time.Time) (LoanTransition, error) {
	if b.IsBorrowed {
		return LoanTransition{}, ErrAlreadyBorrowed
	}
	if enforceEligibility && (!u.IsActive || !u.IsBorrower) {
		return LoanTransition{}, ErrIneligibleBorrower
	}
	uid := u.ID
	return LoanTransition{
		Op:             OpBorrow,
		ExpectBorrowed: false,
		BorrowerID:     &uid,
		BorrowedDate:   datePtr(today),
		ReturnedDate:   nil,
		IsBorrowed:     true,
		borrower:       u,
	}, nil
}

// DecideReturn 还书：只有当前借阅人可以归还
func DecideReturn(b *Book, u *User, today time.Time) (LoanTransition, error) {
	if !b.IsBorrowed {
		return LoanTransition{}, ErrNotBorrowed
	}
	if b.UserID == nil || *b.UserID != u.ID {
		return LoanTransition{}, ErrWrongBorrower
	}
	uid := u.ID
	return LoanTransition{
		Op:               OpReturn,
		ExpectBorrowed:   true,
		ExpectBorrowerID: &uid,
		BorrowerID:       nil,
		BorrowedDate:     nil,
		ReturnedDate:     datePtr(today),
		IsBorrowed:       false,
	}, nil
}
