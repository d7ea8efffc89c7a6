package domain

import (
	"errors"
	"fmt"
)

// 错误分类：领域错误都包一层 kind，传输层只按 kind 映射状态码
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("upstream failure")
	ErrStorage      = errors.New("object storage failure")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	ErrUserNotFound   = newKind(ErrNotFound, "target user does not exist")
	ErrBookNotFound   = newKind(ErrNotFound, "target book does not exist")
	ErrNoCover        = newKind(ErrNotFound, "target book does not have cover image")
	ErrRecordNotFound = newKind(ErrNotFound, "no bibliographic record for isbn")
	ErrStaticNotFound = newKind(ErrNotFound, "static file does not exist")

	ErrAlreadyBorrowed    = newKind(ErrConflict, "book is already borrowed by another user")
	ErrNotBorrowed        = newKind(ErrConflict, "target book has not been borrowed")
	ErrWrongBorrower      = newKind(ErrConflict, "user did not borrow this specific book")
	ErrIneligibleBorrower = newKind(ErrConflict, "user is not eligible to borrow")
	ErrDuplicateISBN      = newKind(ErrConflict, "book already exist")
	ErrDuplicateEmail     = newKind(ErrConflict, "email already registered")
	ErrActiveLoan         = newKind(ErrConflict, "record is part of an active loan")
	ErrConcurrentUpdate   = newKind(ErrConflict, "book was modified concurrently, retry")

	ErrInvalidCredentials = newKind(ErrUnauthorized, "incorrect email or password")
	ErrInactiveUser       = newKind(ErrForbidden, "user is inactive")
)

// Invalid 参数校验失败（面向客户端的提示）
func Invalid(format string, args ...any) error {
	return newKind(ErrValidation, fmt.Sprintf(format, args...))
}

func Forbidden(msg string) error { return newKind(ErrForbidden, msg) }

// UpstreamError 外部书目查询失败；Timeout 区分超时与其它传输错误，均不自动重试
type UpstreamError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return "request time out"
	}
	return "request error"
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("an error occurred: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }
