package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"FieldForce/internal/model"
	"FieldForce/internal/repository"
	pkgerrors "FieldForce/pkg/errors"
	"FieldForce/pkg/metrics"
)

const (
	defaultHistoryLimit = 30
	maxRemarksLength    = 500
	minCacheTTL         = time.Minute
	sideEffectTimeout   = 2 * time.Second
	todayLoadTimeout    = 3 * time.Second

	// 非法 type 统一归到这个标签，避免客户端输入撑爆指标基数
	invalidTypeLabel = "invalid"
)

// Locker 按员工+自然日加锁，重复提交在进入事务前被拒绝
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TodayCache 当日考勤记录缓存，只缓存已存在的记录。
// Set 只在事务提交后调用；读路径回填用 SetIfAbsent，不能覆盖提交后写入的新状态
type TodayCache interface {
	Get(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, bool, error)
	Set(ctx context.Context, session *model.AttendanceSession, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, session *model.AttendanceSession, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, employeeID int64, workDate string) error
}

// EventPublisher 提交后发布考勤事件
type EventPublisher interface {
	PublishAttendanceEvent(ctx context.Context, msg *model.AttendanceEventMessage) error
}

// AttendanceOptions Store 必填，其余依赖缺省时对应功能关闭
type AttendanceOptions struct {
	Store           repository.AttendanceStore
	Locker          Locker
	Cache           TodayCache
	Publisher       EventPublisher
	Metrics         *metrics.AttendanceMetrics
	Logger          *zap.Logger
	Clock           func() time.Time
	NextID          func() (int64, error)
	DefaultLocation *time.Location
	TxTimeout       time.Duration
	LockTTL         time.Duration
	HistoryMaxLimit int
}

// AttendanceService 每个员工每天一条考勤记录: NoSession -> CheckedIn -> CheckedOut
type AttendanceService struct {
	store           repository.AttendanceStore
	locker          Locker
	cache           TodayCache
	publisher       EventPublisher
	metrics         *metrics.AttendanceMetrics
	logger          *zap.Logger
	clock           func() time.Time
	nextID          func() (int64, error)
	defaultLocation *time.Location
	txTimeout       time.Duration
	lockTTL         time.Duration
	historyMaxLimit int
	// 同一员工当日状态的并发回源合并为一次查询
	todayLoads singleflight.Group
}

func NewAttendanceService(opts AttendanceOptions) *AttendanceService {
	s := &AttendanceService{
		store:           opts.Store,
		locker:          opts.Locker,
		cache:           opts.Cache,
		publisher:       opts.Publisher,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		clock:           opts.Clock,
		nextID:          opts.NextID,
		defaultLocation: opts.DefaultLocation,
		txTimeout:       opts.TxTimeout,
		lockTTL:         opts.LockTTL,
		historyMaxLimit: opts.HistoryMaxLimit,
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.nextID == nil {
		s.nextID = func() (int64, error) { return 0, nil } // 交给数据库自增
	}
	if s.defaultLocation == nil {
		s.defaultLocation = time.UTC
	}
	if s.txTimeout <= 0 {
		s.txTimeout = 5 * time.Second
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Second
	}
	if s.historyMaxLimit <= 0 {
		s.historyMaxLimit = 100
	}
	return s
}

// TransitionInput 一次打卡请求，Now 为零值时使用当前时间
type TransitionInput struct {
	Now        time.Time
	Location   *model.LocationInput
	Type       string
	Remarks    string
	EmployeeID int64
}

// ApplyTransition 签到或签退
// 所有校验在访问存储之前完成，事务内任何失败都整体回滚
func (s *AttendanceService) ApplyTransition(ctx context.Context, in TransitionInput) (result *model.TransitionResult, err error) {
	began := time.Now()
	attendanceType := model.AttendanceType(in.Type)
	defer func() {
		s.metrics.RecordTransition(ctx, typeLabel(attendanceType), outcomeOf(err), time.Since(began))
	}()

	if !attendanceType.Valid() {
		return nil, pkgerrors.InvalidAttendanceType
	}
	if in.EmployeeID <= 0 {
		return nil, pkgerrors.InvalidEmployeeID
	}
	point, err := model.NormalizeLocation(in.Location)
	if err != nil {
		return nil, err
	}
	remarks, err := normalizeRemarks(in.Remarks)
	if err != nil {
		return nil, err
	}

	now := in.Now
	if now.IsZero() {
		now = s.clock()
	}

	// 员工与时区在事务外读取，两者都不随打卡变化
	employee, loc, err := s.resolveEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	workDate := now.In(loc).Format(model.WorkDateLayout)

	release, err := s.acquire(ctx, employee.ID, workDate, attendanceType)
	if err != nil {
		return nil, err
	}
	defer release()

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var (
		session  model.AttendanceSession
		duration *model.WorkingDuration
	)
	err = s.store.WithinTransaction(txCtx, func(ctx context.Context, uow repository.UnitOfWork) error {
		current, err := uow.FindSessionForUpdate(ctx, employee.ID, workDate)
		if err != nil {
			return err
		}

		switch attendanceType {
		case model.AttendanceCheckIn:
			session, err = s.checkIn(ctx, uow, current, employee.ID, workDate, loc, now, point, remarks)
		case model.AttendanceCheckOut:
			session, duration, err = s.checkOut(ctx, uow, current, now, point, remarks)
		}
		return err
	})
	if err != nil {
		return nil, translateTxError(txCtx, err)
	}

	s.logger.Info("Attendance recorded",
		zap.Int64("employee_id", employee.ID),
		zap.Int64("attendance_id", session.ID),
		zap.String("type", string(attendanceType)),
		zap.String("work_date", workDate),
	)

	s.afterCommit(ctx, &session, attendanceType, loc, now)

	return &model.TransitionResult{
		Session:  session,
		Duration: duration,
		Type:     attendanceType,
	}, nil
}

func (s *AttendanceService) checkIn(
	ctx context.Context,
	uow repository.UnitOfWork,
	current *model.AttendanceSession,
	employeeID int64,
	workDate string,
	loc *time.Location,
	now time.Time,
	point model.GeoPoint,
	remarks string,
) (model.AttendanceSession, error) {
	if current != nil {
		if current.State() == model.SessionStateCheckedOut {
			return model.AttendanceSession{}, pkgerrors.AlreadyCheckedOut
		}
		return model.AttendanceSession{}, pkgerrors.AlreadyCheckedIn
	}

	id, err := s.nextID()
	if err != nil {
		return model.AttendanceSession{}, pkgerrors.Storage("generate attendance id", err)
	}

	start := now
	session := model.AttendanceSession{
		BaseModel:     model.BaseModel{ID: id},
		EmployeeID:    employeeID,
		WorkDate:      workDate,
		Timezone:      loc.String(),
		Status:        model.AttendanceStatusPresent,
		StartTime:     &start,
		StartLocation: &point,
		Remarks:       remarks,
	}
	if err := uow.CreateSession(ctx, &session); err != nil {
		return model.AttendanceSession{}, err
	}
	return session, nil
}

func (s *AttendanceService) checkOut(
	ctx context.Context,
	uow repository.UnitOfWork,
	current *model.AttendanceSession,
	now time.Time,
	point model.GeoPoint,
	remarks string,
) (model.AttendanceSession, *model.WorkingDuration, error) {
	switch current.State() {
	case model.SessionStateNone:
		return model.AttendanceSession{}, nil, pkgerrors.NotCheckedIn
	case model.SessionStateCheckedOut:
		return model.AttendanceSession{}, nil, pkgerrors.AlreadyCheckedOut
	}

	// 时钟回拨时如实记录签退时间，时长由 ComputeDuration 截到 0
	end := now
	duration := ComputeDuration(*current.StartTime, end)

	session := *current
	session.EndTime = &end
	session.EndLocation = &point
	session.WorkingSeconds = duration.TotalSeconds
	if remarks != "" {
		session.Remarks = remarks
	}
	if err := uow.UpdateSession(ctx, &session); err != nil {
		return model.AttendanceSession{}, nil, err
	}
	return session, &duration, nil
}

// GetTodaySession 查询员工当前自然日的考勤状态，未签退时时长计算到 now
func (s *AttendanceService) GetTodaySession(ctx context.Context, employeeID int64, now time.Time) (*model.TodaySession, error) {
	if employeeID <= 0 {
		return nil, pkgerrors.InvalidEmployeeID
	}
	if now.IsZero() {
		now = s.clock()
	}

	employee, loc, err := s.resolveEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	workDate := now.In(loc).Format(model.WorkDateLayout)

	session, err := s.loadToday(ctx, employee.ID, workDate, loc, now)
	if err != nil {
		return nil, err
	}

	today := &model.TodaySession{
		WorkDate:        workDate,
		WorkingDuration: ComputeDuration(now, now),
	}
	if session == nil {
		return today, nil
	}

	today.Session = session
	today.Exists = true
	today.CheckedIn = session.StartTime != nil
	today.CheckedOut = session.EndTime != nil
	switch session.State() {
	case model.SessionStateCheckedOut:
		today.WorkingDuration = ComputeDuration(*session.StartTime, *session.EndTime)
	case model.SessionStateCheckedIn:
		today.WorkingDuration = ComputeDuration(*session.StartTime, now)
	}
	return today, nil
}

func (s *AttendanceService) loadToday(ctx context.Context, employeeID int64, workDate string, loc *time.Location, now time.Time) (*model.AttendanceSession, error) {
	if s.cache != nil {
		session, ok, err := s.cache.Get(ctx, employeeID, workDate)
		if err != nil {
			s.logger.Warn("Failed to read today cache", zap.Int64("employee_id", employeeID), zap.Error(err))
		} else if ok {
			return session, nil
		}
	}

	// 合并后的查询不能跟随第一个调用方取消，否则同 key 的等待者全部失败
	key := strconv.FormatInt(employeeID, 10) + "|" + workDate
	ch := s.todayLoads.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), todayLoadTimeout)
		defer cancel()
		return s.store.FindSession(loadCtx, employeeID, workDate)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, pkgerrors.Storage("find today session", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, pkgerrors.Storage("find today session", res.Err)
	}
	session := res.Val.(*model.AttendanceSession)
	if session != nil {
		s.backfillCache(ctx, session, loc, now)
	}
	return session, nil
}

// backfillCache 读路径回填。读库之后可能已有签退提交并写入缓存，这里只在缓存为空时写
func (s *AttendanceService) backfillCache(ctx context.Context, session *model.AttendanceSession, loc *time.Location, now time.Time) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.SetIfAbsent(ctx, session, ttlUntilEndOfDay(now, loc)); err != nil {
		s.logger.Warn("Failed to backfill today cache", zap.Int64("employee_id", session.EmployeeID), zap.Error(err))
	}
}

// HistoryInput 历史查询，From/To 为闭区间 YYYY-MM-DD
type HistoryInput struct {
	From       string
	To         string
	Cursor     string
	EmployeeID int64
	Limit      int
}

// ListHistory 按自然日倒序分页，未签退的历史记录时长为零
func (s *AttendanceService) ListHistory(ctx context.Context, in HistoryInput) (*model.HistoryPage, error) {
	if in.EmployeeID <= 0 {
		return nil, pkgerrors.InvalidEmployeeID
	}
	if err := validateDateRange(in.From, in.To); err != nil {
		return nil, err
	}

	cursor, err := repository.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, pkgerrors.InvalidCursor
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > s.historyMaxLimit {
		limit = s.historyMaxLimit
	}

	q := repository.SessionQuery{
		EmployeeID: in.EmployeeID,
		From:       in.From,
		To:         in.To,
		Limit:      limit + 1,
	}
	if cursor != nil {
		q.BeforeWorkDate = cursor.WorkDate
		q.BeforeID = cursor.ID
	}

	sessions, err := s.store.ListSessions(ctx, q)
	if err != nil {
		return nil, pkgerrors.Storage("list attendance history", err)
	}

	page := &model.HistoryPage{}
	if len(sessions) > limit {
		sessions = sessions[:limit]
		page.HasMore = true
		last := sessions[len(sessions)-1]
		page.NextCursor = repository.EncodeCursor(&repository.Cursor{WorkDate: last.WorkDate, ID: last.ID})
	}

	page.Items = make([]model.HistoryItem, 0, len(sessions))
	for _, session := range sessions {
		item := model.HistoryItem{Session: session}
		if session.State() == model.SessionStateCheckedOut {
			item.WorkingDuration = ComputeDuration(*session.StartTime, *session.EndTime)
		} else {
			item.WorkingDuration = ComputeDuration(time.Time{}, time.Time{})
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func validateDateRange(from, to string) error {
	var fromDate, toDate time.Time
	var err error
	if from != "" {
		if fromDate, err = time.Parse(model.WorkDateLayout, from); err != nil {
			return pkgerrors.InvalidDateRange.WithMessage("from must be a date in YYYY-MM-DD format")
		}
	}
	if to != "" {
		if toDate, err = time.Parse(model.WorkDateLayout, to); err != nil {
			return pkgerrors.InvalidDateRange.WithMessage("to must be a date in YYYY-MM-DD format")
		}
	}
	if from != "" && to != "" && fromDate.After(toDate) {
		return pkgerrors.InvalidDateRange.WithMessage("from must not be after to")
	}
	return nil
}

// resolveEmployee 员工必须存在且在职，时区未登记或无法解析时使用组织默认时区
// CheckEmployee 员工不存在或已停用时返回对应错误，刷新 token 前调用
func (s *AttendanceService) CheckEmployee(ctx context.Context, employeeID int64) error {
	if employeeID <= 0 {
		return pkgerrors.InvalidEmployeeID
	}
	_, _, err := s.resolveEmployee(ctx, employeeID)
	return err
}

func (s *AttendanceService) resolveEmployee(ctx context.Context, employeeID int64) (*model.Employee, *time.Location, error) {
	employee, err := s.store.FindEmployee(ctx, employeeID)
	if err != nil {
		return nil, nil, pkgerrors.Storage("find employee", err)
	}
	if employee == nil {
		return nil, nil, pkgerrors.EmployeeNotFound
	}
	if !employee.IsActive() {
		return nil, nil, pkgerrors.EmployeeInactive
	}

	if employee.Timezone == "" {
		return employee, s.defaultLocation, nil
	}
	loc, err := time.LoadLocation(employee.Timezone)
	if err != nil {
		s.logger.Warn("Invalid employee timezone, using default",
			zap.Int64("employee_id", employeeID),
			zap.String("timezone", employee.Timezone),
			zap.Error(err),
		)
		return employee, s.defaultLocation, nil
	}
	return employee, loc, nil
}

// acquire Redis 不可用时退化为仅依赖数据库约束
func (s *AttendanceService) acquire(ctx context.Context, employeeID int64, workDate string, attendanceType model.AttendanceType) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := fmt.Sprintf("attendance:%d:%s", employeeID, workDate)
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		s.logger.Warn("Failed to acquire attendance lock, falling back to database guard",
			zap.String("key", key),
			zap.Error(err),
		)
		return noop, nil
	}
	if !ok {
		s.metrics.RecordLockContended(ctx, string(attendanceType))
		return nil, pkgerrors.TransitionInFlight
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := s.locker.Unlock(unlockCtx, key, token); err != nil {
			s.logger.Warn("Failed to release attendance lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// afterCommit 刷新缓存并发布事件，失败只记日志，已提交的打卡不受影响
func (s *AttendanceService) afterCommit(ctx context.Context, session *model.AttendanceSession, attendanceType model.AttendanceType, loc *time.Location, now time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	s.refreshCache(ctx, session, loc, now)

	if s.publisher == nil {
		return
	}

	msgID, err := s.nextID()
	if err != nil {
		s.logger.Warn("Failed to generate event message id", zap.Error(err))
		return
	}

	msg := &model.AttendanceEventMessage{
		MessageID:      strconv.FormatInt(msgID, 10),
		SessionID:      session.ID,
		EmployeeID:     session.EmployeeID,
		WorkDate:       session.WorkDate,
		WorkingSeconds: session.WorkingSeconds,
	}
	switch attendanceType {
	case model.AttendanceCheckIn:
		msg.EventType = model.EventAttendanceCheckedIn
		msg.OccurredAt = session.StartTime.UTC().Format(time.RFC3339)
		msg.Location = session.StartLocation
	case model.AttendanceCheckOut:
		msg.EventType = model.EventAttendanceCheckedOut
		msg.OccurredAt = session.EndTime.UTC().Format(time.RFC3339)
		msg.Location = session.EndLocation
	}

	err = s.publisher.PublishAttendanceEvent(ctx, msg)
	s.metrics.RecordEventPublished(ctx, msg.EventType, err == nil)
	if err != nil {
		s.logger.Warn("Failed to publish attendance event",
			zap.String("event_type", msg.EventType),
			zap.Int64("attendance_id", session.ID),
			zap.Error(err),
		)
	}
}

// refreshCache 写入失败时删除旧值，避免缓存停留在上一个状态
func (s *AttendanceService) refreshCache(ctx context.Context, session *model.AttendanceSession, loc *time.Location, now time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session, ttlUntilEndOfDay(now, loc)); err != nil {
		s.logger.Warn("Failed to cache today session", zap.Int64("employee_id", session.EmployeeID), zap.Error(err))
		if err := s.cache.Delete(ctx, session.EmployeeID, session.WorkDate); err != nil {
			s.logger.Warn("Failed to evict today session", zap.Int64("employee_id", session.EmployeeID), zap.Error(err))
		}
	}
}

func ttlUntilEndOfDay(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	ttl := midnight.Sub(now)
	if ttl < minCacheTTL {
		return minCacheTTL
	}
	return ttl
}

func normalizeRemarks(remarks string) (string, error) {
	remarks = strings.TrimSpace(remarks)
	if utf8.RuneCountInString(remarks) > maxRemarksLength {
		return "", pkgerrors.InvalidRequest.WithMessage("Remarks must be at most 500 characters")
	}
	return remarks, nil
}

// translateTxError 事务返回的领域错误原样返回，唯一约束与条件更新冲突映射为状态冲突
func translateTxError(txCtx context.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateSession):
		return pkgerrors.AlreadyCheckedIn
	case errors.Is(err, repository.ErrStaleSession):
		return pkgerrors.AlreadyCheckedOut
	}

	var def pkgerrors.Definition
	if errors.As(err, &def) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || txCtx.Err() != nil {
		return pkgerrors.Storage("attendance transaction timed out", err)
	}
	return pkgerrors.Storage("apply attendance transition", err)
}

func typeLabel(t model.AttendanceType) string {
	if !t.Valid() {
		return invalidTypeLabel
	}
	return string(t)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case pkgerrors.KindOf(err) == pkgerrors.KindStorage:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}
