// Package resolver 计算通用课节针对具体学员的实际科目（effective subject）。
//
// 解析是纯函数：输入为课节、模板、学员学习记录与目录科目的不可变快照，
// 相同输入总是得到相同结果，不访问数据库。
package resolver

import (
	"ailumex-academy/internal/model"
	pkgerrors "ailumex-academy/pkg/errors"
)

// Policy 解析所需的策略参数
type Policy struct {
	OralTestMinGrade float64
	PairSizeDefault  int
	BlockSizeDefault int
	MaxUnitDefault   int
}

// UnitRange 闭区间单元范围
type UnitRange struct {
	From int
	To   int
}

// Covers 判断单元是否在范围内
func (r UnitRange) Covers(u int) bool {
	return u >= r.From && u <= r.To
}

// Input 解析输入快照
type Input struct {
	Session   *model.Session
	Template  *model.Template // 为空时使用 Session.SubjectID
	ProgramID string
	MaxUnit   int
	History   []model.AcademicHistory
	Subjects  []model.Subject

	// 学员各周计划中已预约的 bcheck 覆盖的单元
	ScheduledBchecks []UnitRange

	CheckCompleted bool
	CheckPrereq    bool
	Policy         Policy
}

type run struct {
	in        Input
	maxUnit   int
	progress  Progress
	completed map[string]bool
	catalog   *catalog
}

// Resolve 计算实际科目
func Resolve(in Input) (*model.Subject, error) {
	if in.Session == nil {
		return nil, pkgerrors.ErrNoEffectiveSubject
	}
	maxUnit := in.MaxUnit
	if maxUnit <= 0 {
		maxUnit = in.Policy.MaxUnitDefault
	}
	if maxUnit <= 0 {
		maxUnit = 20
	}

	r := &run{
		in:        in,
		maxUnit:   maxUnit,
		progress:  Analyze(in.History, in.ProgramID, maxUnit),
		completed: map[string]bool{},
		catalog:   newCatalog(in.Subjects, in.ProgramID),
	}
	if in.CheckCompleted {
		r.completed = CompletedSubjects(in.History, in.ProgramID, in.Policy.OralTestMinGrade)
	}

	tpl := in.Template
	if tpl == nil {
		if in.Session.SubjectID != nil {
			return r.fixed(*in.Session.SubjectID)
		}
		return nil, pkgerrors.ErrNoEffectiveSubject.WithMessage("课节既没有模板也没有指定科目")
	}
	if tpl.ProgramID != nil && in.ProgramID != "" && *tpl.ProgramID != in.ProgramID {
		return nil, pkgerrors.ErrNoEffectiveSubject.WithMessage("课节模板不属于学员所在项目")
	}

	switch tpl.MappingMode {
	case model.MappingPerUnit:
		return r.perUnit(tpl)
	case model.MappingPair:
		return r.pair(tpl)
	case model.MappingBlock:
		return r.block(tpl)
	case model.MappingFixed:
		if tpl.FixedSubjectID == nil {
			return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("固定模板 %s 未设置科目", tpl.Name)
		}
		return r.fixed(*tpl.FixedSubjectID)
	}
	return nil, pkgerrors.ErrNoEffectiveSubject.WithMessage("未知的模板映射方式 %q", tpl.MappingMode)
}

// ── per_unit ──

func (r *run) perUnit(tpl *model.Template) (*model.Subject, error) {
	target := r.progress.TargetUnit
	if from, to, ok := r.in.Session.AudienceRange(); ok && (target < from || target > to) {
		return nil, pkgerrors.ErrNoEffectiveSubject.
			WithMessage("学员当前为第 %d 单元，不在课节受众范围 %d-%d 内", target, from, to)
	}
	if tpl.SubjectCategory == model.CategoryBskills {
		return r.bskills(tpl, target)
	}

	for u := target; u <= r.maxUnit; u++ {
		candidates := r.catalog.byUnit(tpl.SubjectCategory, u)
		if len(candidates) == 0 {
			if u == target {
				return nil, pkgerrors.ErrCatalogMisconfig.
					WithMessage("缺少科目：%s 第 %d 单元", tpl.SubjectCategory, u)
			}
			continue
		}
		for _, s := range candidates {
			if !r.completed[s.SubjectID] {
				return s, nil
			}
		}
		if !tpl.AllowNextPending {
			break
		}
	}
	return nil, pkgerrors.ErrAlreadyCompleted.WithHint("第 %d 单元的该类课程已完成", target)
}

func (r *run) bskills(tpl *model.Template, unit int) (*model.Subject, error) {
	for {
		up := r.progress.Unit(unit)
		if !up.BcheckAttended && !r.bcheckScheduled(unit) {
			return nil, pkgerrors.ErrBcheckRequired.WithHint("请先预约第 %d 单元的 bcheck", unit)
		}
		slot := up.NextSlot()
		if slot == 0 {
			if tpl.AllowNextPending && unit < r.maxUnit {
				unit++
				continue
			}
			return nil, pkgerrors.ErrUnitComplete.WithHint("第 %d 单元的 4 节技能课均已完成", unit)
		}
		s := r.catalog.bskill(unit, slot)
		if s == nil {
			return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("缺少科目：第 %d 单元 bskill %d", unit, slot)
		}
		return s, nil
	}
}

func (r *run) bcheckScheduled(unit int) bool {
	for _, rg := range r.in.ScheduledBchecks {
		if rg.Covers(unit) {
			return true
		}
	}
	return false
}

// ── pair（bcheck 对） ──

func (r *run) pair(tpl *model.Template) (*model.Subject, error) {
	size := positive(tpl.PairSize, r.in.Policy.PairSizeDefault, 2)
	target := r.progress.TargetUnit

	var lo, hi int
	switch s := r.in.Session; {
	case s.AudienceUnitFrom != nil && s.AudienceUnitTo != nil:
		lo, hi = *s.AudienceUnitFrom, *s.AudienceUnitTo
	case s.AudienceUnitFrom != nil:
		lo, hi = *s.AudienceUnitFrom, *s.AudienceUnitFrom+size-1
	default:
		lo = ((target-1)/size)*size + 1
		hi = lo + size - 1
	}
	if hi > r.maxUnit {
		hi = r.maxUnit
	}
	if target < lo || target > hi {
		return nil, pkgerrors.ErrNoEffectiveSubject.
			WithMessage("学员当前为第 %d 单元，不在 bcheck 组 %d-%d 内", target, lo, hi)
	}

	s := r.catalog.first(model.CategoryBcheck, target)
	if s == nil {
		return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("缺少科目：第 %d 单元 bcheck", target)
	}
	if !r.completed[s.SubjectID] {
		return s, nil
	}
	if tpl.AllowNextPending {
		for u := target + 1; u <= hi; u++ {
			next := r.catalog.first(model.CategoryBcheck, u)
			if next != nil && !r.completed[next.SubjectID] {
				return next, nil
			}
		}
	}
	return nil, pkgerrors.ErrAlreadyCompleted.WithHint("第 %d 单元的 bcheck 已通过", target)
}

// ── block（口试） ──

// BlockBounds 计算参考单元所在模块的起止单元
func BlockBounds(ref, size, maxUnit int) (int, int) {
	if size <= 0 {
		size = 1
	}
	if ref < 1 {
		ref = 1
	}
	start := ((ref-1)/size)*size + 1
	end := start + size - 1
	if maxUnit > 0 && end > maxUnit {
		end = maxUnit
	}
	return start, end
}

func (r *run) block(tpl *model.Template) (*model.Subject, error) {
	size := positive(tpl.BlockSize, r.in.Policy.BlockSizeDefault, 4)

	ref := r.progress.TargetUnit
	switch s := r.in.Session; {
	case s.AudienceUnitTo != nil:
		ref = *s.AudienceUnitTo
	case s.AudienceUnitFrom != nil:
		ref = *s.AudienceUnitFrom
	}
	start, end := BlockBounds(ref, size, r.maxUnit)

	if r.in.CheckPrereq && !r.progress.Unit(end).BcheckAttended {
		return nil, pkgerrors.ErrBcheckRequiredForOral.
			WithHint("参加第 %d-%d 单元口试前，请先出席第 %d 单元的 bcheck", start, end, end)
	}

	s := r.catalog.oralTest(start, end)
	if s == nil {
		return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("缺少科目：第 %d-%d 单元口试", start, end)
	}
	if r.completed[s.SubjectID] {
		return nil, pkgerrors.ErrAlreadyCompleted.WithHint("第 %d-%d 单元口试已通过", start, end)
	}
	return s, nil
}

// ── fixed ──

func (r *run) fixed(subjectID string) (*model.Subject, error) {
	s, ok := r.catalog.byID[subjectID]
	if !ok {
		return nil, pkgerrors.ErrCatalogMisconfig.WithMessage("科目 %s 不存在", subjectID)
	}
	if r.completed[s.SubjectID] {
		return nil, pkgerrors.ErrAlreadyCompleted.WithHint("科目 %s 已完成", s.Name)
	}
	return s, nil
}

func positive(v *int, fallbacks ...int) int {
	if v != nil && *v > 0 {
		return *v
	}
	for _, f := range fallbacks {
		if f > 0 {
			return f
		}
	}
	return 1
}
