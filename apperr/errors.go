package apperr

import (
	"errors"
	"fmt"
)

// 错误分类，用 errors.Is 判断
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrCapacity        = errors.New("out of stock")
	ErrExternalService = errors.New("external service error")
)

// Error 携带操作名和出错实体的结构化错误
type Error struct {
	Op   string // 例如 "catalog.Rebuild"
	Kind error  // 上面的分类之一
	ID   string // 可选：商品 ID、条码、订单号
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.ID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, apperr.ErrNotFound) 对包装过的错误也成立
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func New(op string, kind error, id string, err error) *Error {
	return &Error{Op: op, Kind: kind, ID: id, Err: err}
}

func Validation(op, id, format string, args ...interface{}) *Error {
	return New(op, ErrValidation, id, fmt.Errorf(format, args...))
}

func NotFound(op, id string) *Error {
	return New(op, ErrNotFound, id, nil)
}

func External(op string, err error) *Error {
	return New(op, ErrExternalService, "", err)
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsCapacity(err error) bool   { return errors.Is(err, ErrCapacity) }
func IsExternal(err error) bool   { return errors.Is(err, ErrExternalService) }
