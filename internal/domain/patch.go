package domain

import "strings"

// BookPatch 书目局部更新。只列出允许修改的字段；isbn 与借阅字段不在其中。
type BookPatch struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Edition       *string `json:"edition"`
	Publisher     *string `json:"publisher"`
	PublishDate   *string `json:"publish_date"`
	PublishPlace  *string `json:"publish_place"`
	NumberOfPages *int    `json:"number_of_pages"`
	Description   *string `json:"description"`
	Language      *string `json:"language"`
	LCCN          *string `json:"lccn"`
	Subtitle      *string `json:"subtitle"`
	Subjects      *string `json:"subjects"`
}

func (p BookPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Invalid("title must not be empty")
	}
	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		return Invalid("author must not be empty")
	}
	if p.NumberOfPages != nil && *p.NumberOfPages < 0 {
		return Invalid("number_of_pages must not be negative")
	}
	return nil
}

// Columns 逐字段合并，未提供的字段不出现在结果里
func (p BookPatch) Columns() map[string]any {
	cols := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			cols[col] = strings.TrimSpace(*v)
		}
	}
	setStr("title", p.Title)
	setStr("author", p.Author)
	setStr("edition", p.Edition)
	setStr("publisher", p.Publisher)
	setStr("publish_date", p.PublishDate)
	setStr("publish_place", p.PublishPlace)
	if p.NumberOfPages != nil {
		cols["number_of_pages"] = *p.NumberOfPages
	}
	setStr("description", p.Description)
	setStr("language", p.Language)
	setStr("lccn", p.LCCN)
	setStr("subtitle", p.Subtitle)
	setStr("subjects", p.Subjects)
	return cols
}

// UserPatch 用户局部更新。Status 与各标记位只允许管理员修改。
type UserPatch struct {
	Name       *string `json:"name"`
	Age        *int    `json:"age"`
	Password   *string `json:"password"`
	Status     *Role   `json:"status"`
	IsActive   *bool   `json:"is_active"`
	IsBorrower *bool   `json:"is_borrower"`
	IsMember   *bool   `json:"is_member"`
}

func (p UserPatch) Privileged() bool {
	return p.Status != nil || p.IsActive != nil || p.IsBorrower != nil || p.IsMember != nil
}

func (p UserPatch) Validate() error {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" || len(n) > 64 {
			return Invalid("name must be 1-64 characters")
		}
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return Invalid("age out of range")
	}
	if p.Password != nil && len(*p.Password) < 6 {
		return Invalid("password must be at least 6 characters")
	}
	if p.Status != nil {
		if _, err := ParseRole(string(*p.Status)); err != nil {
			return err
		}
	}
	return nil
}

// Columns passwordHash 为空表示本次不改密码
func (p UserPatch) Columns(passwordHash string) map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Age != nil {
		cols["age"] = *p.Age
	}
	if passwordHash != "" {
		cols["password_hash"] = passwordHash
	}
	if p.Status != nil {
		r, _ := ParseRole(string(*p.Status))
		cols["status"] = r
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.IsBorrower != nil {
		cols["is_borrower"] = *p.IsBorrower
	}
	if p.IsMember != nil {
		cols["is_member"] = *p.IsMember
	}
	return cols
}
