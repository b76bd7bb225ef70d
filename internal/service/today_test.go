package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FieldForce/internal/model"
	"FieldForce/internal/repository/repofake"
	pkgerrors "FieldForce/pkg/errors"
)

// pausingStore 第一次 FindSession 读完后停住，直到 release 被关闭
type pausingStore struct {
	*repofake.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
	done    chan struct{}
	ctxErr  error
}

func withPausingStore(p *pausingStore) func(*AttendanceOptions) {
	return func(o *AttendanceOptions) {
		p.Store = o.Store.(*repofake.Store)
		p.read = make(chan struct{})
		p.release = make(chan struct{})
		p.done = make(chan struct{})
		o.Store = p
	}
}

func (p *pausingStore) FindSession(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error) {
	session, err := p.Store.FindSession(ctx, employeeID, workDate)

	first := false
	p.once.Do(func() { first = true })
	if !first {
		return session, err
	}

	close(p.read)
	<-p.release
	p.ctxErr = ctx.Err()
	close(p.done)
	if p.ctxErr != nil {
		return nil, p.ctxErr
	}
	return session, err
}

func TestTodayBackfillDoesNotHideCheckOut(t *testing.T) {
	p := &pausingStore{}
	f := newFixture(t, withPausingStore(p))
	ctx := context.Background()

	_, err := f.transition(t, "check-in", morning)
	require.NoError(t, err)
	require.NoError(t, f.cache.Delete(ctx, testEmployeeID, "2025-03-14"))

	// 读路径拿到签到状态后停住
	reads := make(chan *model.TodaySession, 1)
	go func() {
		today, err := f.svc.GetTodaySession(ctx, testEmployeeID, morning.Add(time.Hour))
		assert.NoError(t, err)
		reads <- today
	}()
	<-p.read

	_, err = f.transition(t, "check-out", morning.Add(8*time.Hour))
	require.NoError(t, err)

	close(p.release)
	stale := <-reads
	require.NotNil(t, stale)
	assert.False(t, stale.CheckedOut)

	cached, hit, _ := f.cache.Get(ctx, testEmployeeID, "2025-03-14")
	require.True(t, hit)
	assert.Equal(t, model.SessionStateCheckedOut, cached.State())

	today, err := f.svc.GetTodaySession(ctx, testEmployeeID, morning.Add(9*time.Hour))
	require.NoError(t, err)
	assert.True(t, today.CheckedIn)
	assert.True(t, today.CheckedOut)
	assert.Equal(t, "8 hr", today.WorkingDuration.Display)
}

func TestTodayLoadSurvivesFirstCallerCancel(t *testing.T) {
	p := &pausingStore{}
	f := newFixture(t, withPausingStore(p), func(o *AttendanceOptions) { o.Cache = nil })

	_, err := f.transition(t, "check-in", morning)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := f.svc.GetTodaySession(ctx, testEmployeeID, morning.Add(time.Hour))
		errs <- err
	}()
	<-p.read

	cancel()
	err = <-errs
	require.ErrorIs(t, err, pkgerrors.StorageFailure)
	require.ErrorIs(t, err, context.Canceled)

	// 合并查询仍在用未取消的 ctx，其他等待者拿到正常结果
	close(p.release)
	<-p.done
	assert.NoError(t, p.ctxErr)

	today, err := f.svc.GetTodaySession(context.Background(), testEmployeeID, morning.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, today.CheckedIn)
}
