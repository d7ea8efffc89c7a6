// Package book 书目接口的请求/响应结构，按字段组组合
package book

import (
	"time"

	"gorm.io/datatypes"

	"github.com/dukeofgo/librarius/internal/domain"
)

const dateLayout = "2006-01-02"

// Info 书名与作者，建书必填
type Info struct {
	Title  string `json:"title" binding:"required,max=255"`
	Author string `json:"author" binding:"required,max=255"`
}

// Metadata 其余书目字段，全部可选
type Metadata struct {
	Edition       string `json:"edition" binding:"max=128"`
	Publisher     string `json:"publisher" binding:"max=255"`
	PublishDate   string `json:"publish_date" binding:"max=64"`
	PublishPlace  string `json:"publish_place" binding:"max=128"`
	NumberOfPages *int   `json:"number_of_pages" binding:"omitempty,min=0"`
	Description   string `json:"description"`
	Language      string `json:"language" binding:"max=64"`
	LCCN          string `json:"lccn" binding:"max=64"`
	Subtitle      string `json:"subtitle" binding:"max=255"`
	Subjects      string `json:"subjects" binding:"max=255"`
}

// Loan 借阅状态
type Loan struct {
	IsBorrowed    bool    `json:"is_borrowed"`
	UserID        *uint   `json:"user_id"`
	BorrowerEmail string  `json:"borrower_email,omitempty"`
	BorrowedDate  *string `json:"borrowed_date"`
	ReturnedDate  *string `json:"returned_date"`
}

type CreateReq struct {
	ISBN string `json:"isbn" binding:"required,book_isbn"`
	Info
	Metadata
}

func (r *CreateReq) Book() *domain.Book {
	return &domain.Book{
		ISBN:          r.ISBN,
		Title:         r.Title,
		Author:        r.Author,
		Edition:       r.Edition,
		Publisher:     r.Publisher,
		PublishDate:   r.PublishDate,
		PublishPlace:  r.PublishPlace,
		NumberOfPages: r.NumberOfPages,
		Description:   r.Description,
		Language:      r.Language,
		LCCN:          r.LCCN,
		Subtitle:      r.Subtitle,
		Subjects:      r.Subjects,
	}
}

// UpdateReq 局部更新；isbn 与借阅字段不可改
type UpdateReq struct {
	Title         *string `json:"title" binding:"omitempty,max=255"`
	Author        *string `json:"author" binding:"omitempty,max=255"`
	Edition       *string `json:"edition" binding:"omitempty,max=128"`
	Publisher     *string `json:"publisher" binding:"omitempty,max=255"`
	PublishDate   *string `json:"publish_date" binding:"omitempty,max=64"`
	PublishPlace  *string `json:"publish_place" binding:"omitempty,max=128"`
	NumberOfPages *int    `json:"number_of_pages" binding:"omitempty,min=0"`
	Description   *string `json:"description"`
	Language      *string `json:"language" binding:"omitempty,max=64"`
	LCCN          *string `json:"lccn" binding:"omitempty,max=64"`
	Subtitle      *string `json:"subtitle" binding:"omitempty,max=255"`
	Subjects      *string `json:"subjects" binding:"omitempty,max=255"`
}

func (r *UpdateReq) Patch() domain.BookPatch {
	return domain.BookPatch{
		Title:         r.Title,
		Author:        r.Author,
		Edition:       r.Edition,
		Publisher:     r.Publisher,
		PublishDate:   r.PublishDate,
		PublishPlace:  r.PublishPlace,
		NumberOfPages: r.NumberOfPages,
		Description:   r.Description,
		Language:      r.Language,
		LCCN:          r.LCCN,
		Subtitle:      r.Subtitle,
		Subjects:      r.Subjects,
	}
}

type ListQuery struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0,max=100"`
}

type Resp struct {
	ID   uint   `json:"id"`
	ISBN string `json:"isbn"`
	Info
	Metadata
	Loan
	HasCover  bool      `json:"has_cover"`
	AddedDate string    `json:"added_date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListResp struct {
	Total int64  `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
	Items []Resp `json:"items"`
}

func FromDomain(b *domain.Book) Resp {
	r := Resp{
		ID:   b.ID,
		ISBN: b.ISBN,
		Info: Info{Title: b.Title, Author: b.Author},
		Metadata: Metadata{
			Edition:       b.Edition,
			Publisher:     b.Publisher,
			PublishDate:   b.PublishDate,
			PublishPlace:  b.PublishPlace,
			NumberOfPages: b.NumberOfPages,
			Description:   b.Description,
			Language:      b.Language,
			LCCN:          b.LCCN,
			Subtitle:      b.Subtitle,
			Subjects:      b.Subjects,
		},
		Loan: Loan{
			IsBorrowed:   b.IsBorrowed,
			UserID:       b.UserID,
			BorrowedDate: FormatDate(b.BorrowedDate),
			ReturnedDate: FormatDate(b.ReturnedDate),
		},
		HasCover:  b.HasCover(),
		AddedDate: time.Time(b.AddedDate).Format(dateLayout),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Borrower != nil && b.IsBorrowed {
		r.BorrowerEmail = b.Borrower.Email
	}
	return r
}

func FromDomainList(books []domain.Book) []Resp {
	out := make([]Resp, 0, len(books))
	for i := range books {
		out = append(out, FromDomain(&books[i]))
	}
	return out
}

// FormatDate nil 保持 nil
func FormatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(dateLayout)
	return &s
}

// Message 只带提示语的响应
type Message struct {
	Message string `json:"message"`
}

// URL 预签名链接
type URL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}
