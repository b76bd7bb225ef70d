package errors

import (
	stderrors "errors"
)

// Kind 决定错误映射到哪一类 HTTP 状态
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindStorage      Kind = "storage"
)

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
	Kind    Kind
}

func (d Definition) Error() string {
	return d.Message
}

// Is 只比较错误码，允许 WithMessage 之后仍能被 errors.Is 识别
func (d Definition) Is(target error) bool {
	var t Definition
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == d.Code
}

// WithMessage 复制一份定义并替换提示信息
func (d Definition) WithMessage(msg string) Definition {
	d.Message = msg
	return d
}

// 请求校验错误。
var (
	InvalidRequest        = Definition{Code: "INVALID_REQUEST", Message: "Invalid request", Kind: KindValidation}
	InvalidAttendanceType = Definition{Code: "INVALID_ATTENDANCE_TYPE", Message: "Type must be either 'check-in' or 'check-out'", Kind: KindValidation}
	InvalidLocation       = Definition{Code: "INVALID_LOCATION", Message: "Invalid location coordinates. Please provide [longitude, latitude]", Kind: KindValidation}
	InvalidDateRange      = Definition{Code: "INVALID_DATE_RANGE", Message: "Invalid date range", Kind: KindValidation}
	InvalidCursor         = Definition{Code: "INVALID_CURSOR", Message: "Invalid pagination cursor", Kind: KindValidation}
)

// 认证相关错误。
var (
	Unauthorized      = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized", Kind: KindUnauthorized}
	InvalidEmployeeID = Definition{Code: "INVALID_EMPLOYEE_ID", Message: "Invalid employee ID format", Kind: KindUnauthorized}
)

// 员工相关错误。
var (
	EmployeeNotFound = Definition{Code: "EMPLOYEE_NOT_FOUND", Message: "User not found", Kind: KindNotFound}
	EmployeeInactive = Definition{Code: "EMPLOYEE_INACTIVE", Message: "User account is inactive", Kind: KindNotFound}
)

// 考勤状态机冲突。
var (
	AlreadyCheckedIn   = Definition{Code: "ALREADY_CHECKED_IN", Message: "Check-in already recorded for today", Kind: KindConflict}
	NotCheckedIn       = Definition{Code: "NOT_CHECKED_IN", Message: "No check-in found for today. Please check-in first.", Kind: KindConflict}
	AlreadyCheckedOut  = Definition{Code: "ALREADY_CHECKED_OUT", Message: "Check-out already recorded for today", Kind: KindConflict}
	TransitionInFlight = Definition{Code: "ATTENDANCE_IN_PROGRESS", Message: "Another attendance request is being processed", Kind: KindConflict}
)

// 限流与存储错误。
var (
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please try again later", Kind: KindRateLimited}
	StorageFailure  = Definition{Code: "STORAGE_FAILURE", Message: "Internal Server Error", Kind: KindStorage}
	InternalError   = Definition{Code: "INTERNAL_SERVER_ERROR", Message: "Internal Server Error", Kind: KindStorage}
)

// StorageError 包装底层存储故障，对外只暴露 StorageFailure，cause 只进日志
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	if e.Cause == nil {
		return e.Op + ": storage failure"
	}
	return e.Op + ": " + e.Cause.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{StorageFailure, e.Cause}
}

// Storage 将任意底层错误标记为存储错误
func Storage(op string, cause error) error {
	return &StorageError{Op: op, Cause: cause}
}

// KindOf 返回错误的分类，无法识别的错误视为存储错误
func KindOf(err error) Kind {
	if def, ok := AsDefinition(err); ok {
		return def.Kind
	}
	return KindStorage
}

// AsDefinition 从错误链中取出业务错误定义
func AsDefinition(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}

// ErrSkipMessage 消费端返回此错误时直接 ack，不再重投
var ErrSkipMessage = stderrors.New("skip message")

// token 相关错误
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrEmployeeIDNotFound           = stderrors.New("employee id not found in token")
)
