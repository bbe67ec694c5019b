package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ailumex-academy/config"
	"ailumex-academy/pkg/redis"
)

// ── 替身 ──

type fakeSync struct {
	calls map[string]int
	fail  error
}

func (f *fakeSync) hit(name string) (int, error) {
	f.calls[name]++
	if f.fail != nil {
		return 0, f.fail
	}
	return 3, nil
}

func (f *fakeSync) AutoStart(context.Context) (int, error) { return f.hit(JobSessionStart) }
func (f *fakeSync) AutoDone(context.Context) (int, error) { return f.hit(JobSessionDone) }
func (f *fakeSync) RelayOutbox(context.Context) (int, error) { return f.hit(JobOutboxRelay) }
func (f *fakeSync) MarkAgendasExecuted(context.Context) (int, error) {
	return f.hit(JobAgendaExecute)
}
func (f *fakeSync) ScavengePlanLines(context.Context) (int, error) {
	return f.hit(JobPlanScavenger)
}

type lease struct {
	owner  string
	until  time.Time
	result string
}

type fakeLeases struct {
	rows map[string]*lease
}

func (f *fakeLeases) TryAcquire(_ context.Context, job, owner string, ttl time.Duration, now time.Time) (bool, error) {
	if l, ok := f.rows[job]; ok && l.owner != owner && now.Before(l.until) {
		return false, nil
	}
	f.rows[job] = &lease{owner: owner, until: now.Add(ttl)}
	return true, nil
}

func (f *fakeLeases) Release(_ context.Context, job, owner, result string, now time.Time) error {
	if l, ok := f.rows[job]; ok && l.owner == owner {
		l.until = now
		l.result = result
	}
	return nil
}

type fakeLock struct {
	held     map[string]string
	unlocked []string
	err      error
}

func (f *fakeLock) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, ok := f.held[key]; ok {
		return "", redis.ErrLockNotAcquired
	}
	f.held[key] = "tok-" + key
	return f.held[key], nil
}

func (f *fakeLock) Unlock(_ context.Context, key, token string) error {
	if f.held[key] == token {
		delete(f.held, key)
		f.unlocked = append(f.unlocked, key)
	}
	return nil
}

func testCron() config.CronConfig {
	return config.CronConfig{
		Enabled:            true,
		SessionStartSpec:   "@every 5m",
		SessionDoneSpec:    "@every 5m",
		AgendaExecutedSpec: "0 1 * * *",
		PlanScavengerSpec:  "30 2 * * *",
		OutboxRelaySpec:    "@every 1m",
		LeaderTTL:          time.Minute,
	}
}

func newTestScheduler(t *testing.T, lock LeaderLock) (*Scheduler, *fakeSync, *fakeLeases) {
	t.Helper()
	sync := &fakeSync{calls: map[string]int{}}
	leases := &fakeLeases{rows: map[string]*lease{}}
	s, err := NewScheduler(testCron(), sync, leases, lock, zap.NewNop())
	if err != nil {
		t.Fatalf("创建调度器应成功: %v", err)
	}
	return s, sync, leases
}

// ── 测试 ──

func TestNewScheduler_RegistersAllJobs(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	if len(s.tasks) != 5 {
		t.Errorf("期望注册 5 个任务，实际 %d", len(s.tasks))
	}
	if len(s.cron.Entries()) != 5 {
		t.Errorf("期望 5 个 cron 条目，实际 %d", len(s.cron.Entries()))
	}
}

func TestNewScheduler_EmptySpecSkipsJob(t *testing.T) {
	cfg := testCron()
	cfg.PlanScavengerSpec = ""
	s, err := NewScheduler(cfg, &fakeSync{calls: map[string]int{}}, &fakeLeases{rows: map[string]*lease{}}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("创建调度器应成功: %v", err)
	}
	if _, ok := s.tasks[JobPlanScavenger]; ok {
		t.Error("空表达式的任务不应注册")
	}
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := testCron()
	cfg.SessionDoneSpec = "every five minutes"
	_, err := NewScheduler(cfg, &fakeSync{calls: map[string]int{}}, &fakeLeases{rows: map[string]*lease{}}, nil, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), JobSessionDone) {
		t.Errorf("非法表达式应返回带任务名的错误，实际: %v", err)
	}
}

func TestRun_DatabaseLease(t *testing.T) {
	s, sync, leases := newTestScheduler(t, nil)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	if err := s.run(context.Background(), JobSessionStart); err != nil {
		t.Fatalf("执行任务应成功: %v", err)
	}
	if sync.calls[JobSessionStart] != 1 {
		t.Errorf("期望调用 AutoStart 1 次，实际 %d", sync.calls[JobSessionStart])
	}
	row := leases.rows[JobSessionStart]
	if row == nil || row.result != "ok: 3" || !row.until.Equal(now) {
		t.Errorf("租约应释放并记录结果，实际 %+v", row)
	}
}

func TestRun_LeaseHeldByOtherInstance(t *testing.T) {
	s, sync, leases := newTestScheduler(t, nil)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }
	leases.rows[JobSessionDone] = &lease{owner: "other", until: now.Add(time.Minute)}

	if err := s.run(context.Background(), JobSessionDone); err != nil {
		t.Fatalf("未抢到租约不应报错: %v", err)
	}
	if sync.calls[JobSessionDone] != 0 {
		t.Error("其他实例持有租约时不应执行")
	}

	// 租约过期后接管
	s.clock = func() time.Time { return now.Add(2 * time.Minute) }
	_ = s.run(context.Background(), JobSessionDone)
	if sync.calls[JobSessionDone] != 1 {
		t.Error("租约过期后应执行")
	}
}

func TestRun_RedisLock(t *testing.T) {
	lock := &fakeLock{held: map[string]string{}}
	s, sync, leases := newTestScheduler(t, lock)

	if err := s.run(context.Background(), JobOutboxRelay); err != nil {
		t.Fatalf("执行任务应成功: %v", err)
	}
	if sync.calls[JobOutboxRelay] != 1 {
		t.Errorf("期望调用 RelayOutbox 1 次，实际 %d", sync.calls[JobOutboxRelay])
	}
	if len(lock.unlocked) != 1 || lock.unlocked[0] != "cron:"+JobOutboxRelay {
		t.Errorf("执行后应释放锁，实际 %v", lock.unlocked)
	}
	if len(leases.rows) != 0 {
		t.Error("有 Redis 时不应使用数据库租约")
	}

	lock.held["cron:"+JobOutboxRelay] = "someone-else"
	_ = s.run(context.Background(), JobOutboxRelay)
	if sync.calls[JobOutboxRelay] != 1 {
		t.Error("锁被占用时不应执行")
	}
}

func TestRun_RedisErrorFallsBackToLease(t *testing.T) {
	lock := &fakeLock{held: map[string]string{}, err: errors.New("connection refused")}
	s, sync, leases := newTestScheduler(t, lock)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	if err := s.run(context.Background(), JobSessionDone); err != nil {
		t.Fatalf("Redis 故障时应改用租约执行: %v", err)
	}
	if sync.calls[JobSessionDone] != 1 {
		t.Errorf("期望调用 AutoDone 1 次，实际 %d", sync.calls[JobSessionDone])
	}
	if row := leases.rows[JobSessionDone]; row == nil || row.result != "ok: 3" {
		t.Errorf("应通过数据库租约执行并记录结果，实际 %+v", row)
	}

	// 租约被其他实例持有时同样跳过
	leases.rows[JobSessionDone] = &lease{owner: "other", until: now.Add(time.Minute)}
	_ = s.run(context.Background(), JobSessionDone)
	if sync.calls[JobSessionDone] != 1 {
		t.Error("租约被占用时不应执行")
	}
}

func TestRun_FailureRecorded(t *testing.T) {
	s, sync, leases := newTestScheduler(t, nil)
	sync.fail = errors.New("数据库不可用")

	err := s.run(context.Background(), JobAgendaExecute)
	if err == nil {
		t.Fatal("任务失败应返回错误")
	}
	if got := leases.rows[JobAgendaExecute].result; got != "error: 数据库不可用" {
		t.Errorf("租约应记录失败原因，实际 %q", got)
	}
}

func TestRun_UnknownJob(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	if err := s.run(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("期望 ErrUnknownJob，实际: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

// [自证通过] internal/job/scheduler_test.go
