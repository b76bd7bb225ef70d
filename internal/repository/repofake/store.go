// Package repofake 内存版考勤存储，用于 service 与 handler 测试
package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"FieldForce/internal/model"
	"FieldForce/internal/repository"
)

type sessionKey struct {
	workDate   string
	employeeID int64
}

// Store 事务默认串行执行，等价于行锁生效的效果
// Concurrent=true 时事务并行，冲突在提交时由唯一约束与条件更新发现
type Store struct {
	// BeforeCommit 在提交前调用，测试可以借此模拟并发写入
	BeforeCommit func()
	Errors       map[string]error
	employees    map[int64]model.Employee
	sessions     map[sessionKey]model.AttendanceSession
	audits       map[string]model.AttendanceAuditLog
	calls        map[string]int
	TxDelay      time.Duration
	mu           sync.Mutex
	txMu         sync.Mutex
	nextID       int64
	Concurrent   bool
}

var (
	_ repository.AttendanceStore = (*Store)(nil)
	_ repository.AuditStore      = (*Store)(nil)
)

func New() *Store {
	return &Store{
		Errors:    map[string]error{},
		employees: map[int64]model.Employee{},
		sessions:  map[sessionKey]model.AttendanceSession{},
		audits:    map[string]model.AttendanceAuditLog{},
		calls:     map[string]int{},
		nextID:    1000,
	}
}

func (s *Store) AddEmployee(e model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// PutSession 直接写入已提交数据
func (s *Store) PutSession(session model.AttendanceSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == 0 {
		s.nextID++
		session.ID = s.nextID
	}
	s.sessions[sessionKey{employeeID: session.EmployeeID, workDate: session.WorkDate}] = session
}

func (s *Store) Session(employeeID int64, workDate string) (model.AttendanceSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey{employeeID: employeeID, workDate: workDate}]
	return session, ok
}

func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) AuditLogs() []model.AttendanceAuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AttendanceAuditLog, 0, len(s.audits))
	for _, log := range s.audits {
		out = append(out, log)
	}
	return out
}

// Calls 返回某个操作被调用的次数
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.Errors[op]
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	if err := s.enter("WithinTransaction"); err != nil {
		return err
	}
	if !s.Concurrent {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}

	if s.TxDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.TxDelay):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	uow := &unit{store: s}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	if s.BeforeCommit != nil {
		s.BeforeCommit()
	}
	return uow.commit()
}

func (s *Store) FindEmployee(ctx context.Context, employeeID int64) (*model.Employee, error) {
	if err := s.enter("FindEmployee"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[employeeID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) FindSession(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error) {
	if err := s.enter("FindSession"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey{employeeID: employeeID, workDate: workDate}]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *Store) ListSessions(ctx context.Context, q repository.SessionQuery) ([]model.AttendanceSession, error) {
	if err := s.enter("ListSessions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.AttendanceSession
	for key, session := range s.sessions {
		if key.employeeID != q.EmployeeID {
			continue
		}
		if q.From != "" && key.workDate < q.From {
			continue
		}
		if q.To != "" && key.workDate > q.To {
			continue
		}
		if q.BeforeWorkDate != "" {
			before := key.workDate < q.BeforeWorkDate ||
				(key.workDate == q.BeforeWorkDate && session.ID < q.BeforeID)
			if !before {
				continue
			}
		}
		out = append(out, session)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkDate != out[j].WorkDate {
			return out[i].WorkDate > out[j].WorkDate
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Record(ctx context.Context, log *model.AttendanceAuditLog) (bool, error) {
	if err := s.enter("Record"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audits[log.MessageID]; ok {
		return false, nil
	}
	s.nextID++
	log.ID = s.nextID
	s.audits[log.MessageID] = *log
	return true, nil
}

// unit 暂存本事务的写入，提交时统一校验
type unit struct {
	store   *Store
	creates []model.AttendanceSession
	updates []model.AttendanceSession
}

func (u *unit) FindSessionForUpdate(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error) {
	if err := u.store.enter("FindSessionForUpdate"); err != nil {
		return nil, err
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	session, ok := u.store.sessions[sessionKey{employeeID: employeeID, workDate: workDate}]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (u *unit) CreateSession(ctx context.Context, session *model.AttendanceSession) error {
	if err := u.store.enter("CreateSession"); err != nil {
		return err
	}
	now := time.Now()
	session.CreatedAt, session.UpdatedAt = now, now
	u.creates = append(u.creates, *session)
	return nil
}

func (u *unit) UpdateSession(ctx context.Context, session *model.AttendanceSession) error {
	if err := u.store.enter("UpdateSession"); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	u.updates = append(u.updates, *session)
	return nil
}

func (u *unit) commit() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range u.creates {
		if _, exists := s.sessions[sessionKey{employeeID: session.EmployeeID, workDate: session.WorkDate}]; exists {
			return repository.ErrDuplicateSession
		}
	}
	for _, session := range u.updates {
		current, ok := s.sessions[sessionKey{employeeID: session.EmployeeID, workDate: session.WorkDate}]
		if !ok || current.ID != session.ID || current.EndTime != nil {
			return repository.ErrStaleSession
		}
	}

	for _, session := range u.creates {
		if session.ID == 0 {
			s.nextID++
			session.ID = s.nextID
		}
		s.sessions[sessionKey{employeeID: session.EmployeeID, workDate: session.WorkDate}] = session
	}
	for _, session := range u.updates {
		s.sessions[sessionKey{employeeID: session.EmployeeID, workDate: session.WorkDate}] = session
	}
	return nil
}
