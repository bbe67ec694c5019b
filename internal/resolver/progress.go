package resolver

import (
	"sort"

	"ailumex-academy/internal/model"
)

// SlotsPerUnit 每个单元的 bskill 数量
const SlotsPerUnit = 4

// UnitProgress 单个单元的进度
type UnitProgress struct {
	Unit           int   `json:"unit"`
	BcheckAttended bool  `json:"bcheck_attended"`
	AttendedSlots  []int `json:"attended_slots"` // 出席的 bskill 序号（去重）
	TakenSlots     []int `json:"taken_slots"`    // 出席或缺席的 bskill 序号（去重）
	Complete       bool  `json:"complete"`
}

// NextSlot 返回下一个未消耗的 bskill 序号，全部消耗时返回 0
func (u UnitProgress) NextSlot() int {
	taken := make(map[int]bool, len(u.TakenSlots))
	for _, s := range u.TakenSlots {
		taken[s] = true
	}
	for s := 1; s <= SlotsPerUnit; s++ {
		if !taken[s] {
			return s
		}
	}
	return 0
}

// Progress 学员在某项目下的进度快照
type Progress struct {
	TargetUnit int                   `json:"target_unit"`
	MaxTouched int                   `json:"max_touched"`
	Units      map[int]*UnitProgress `json:"units"`
}

// Unit 返回单元进度，不存在时返回零值
func (p Progress) Unit(u int) UnitProgress {
	if up, ok := p.Units[u]; ok {
		return *up
	}
	return UnitProgress{Unit: u}
}

// Analyze 遍历学习记录计算目标单元
//
// 单元完成 = 出席该单元 bcheck 且出席 4 个不同序号的 bskill。
// 目标单元 = 最大触及单元（已完成则 +1），并夹在 [1, maxUnit] 内。
func Analyze(history []model.AcademicHistory, programID string, maxUnit int) Progress {
	p := Progress{Units: make(map[int]*UnitProgress)}
	attended := make(map[int]map[int]bool)
	taken := make(map[int]map[int]bool)

	for i := range history {
		h := &history[i]
		if !belongs(h, programID) || h.UnitNumber == nil {
			continue
		}
		u := *h.UnitNumber
		up, ok := p.Units[u]
		if !ok {
			up = &UnitProgress{Unit: u}
			p.Units[u] = up
			attended[u] = make(map[int]bool)
			taken[u] = make(map[int]bool)
		}
		if u > p.MaxTouched {
			p.MaxTouched = u
		}
		switch h.SubjectCategory {
		case model.CategoryBcheck:
			if h.Attended() {
				up.BcheckAttended = true
			}
		case model.CategoryBskills:
			slot := h.Slot()
			if slot < 1 || slot > SlotsPerUnit {
				continue
			}
			if h.Taken() {
				taken[u][slot] = true
			}
			if h.Attended() {
				attended[u][slot] = true
			}
		}
	}

	for u, up := range p.Units {
		up.AttendedSlots = sortedKeys(attended[u])
		up.TakenSlots = sortedKeys(taken[u])
		up.Complete = up.BcheckAttended && len(up.AttendedSlots) >= SlotsPerUnit
	}

	target := p.MaxTouched
	if target == 0 {
		target = 1
	} else if p.Units[target].Complete {
		target++
	}
	if maxUnit > 0 && target > maxUnit {
		target = maxUnit
	}
	if target < 1 {
		target = 1
	}
	p.TargetUnit = target
	return p
}

// CompletedSubjects 计算已完成科目集合
//
//	bcheck    仅出席（缺席可重考）
//	bskills   出席或缺席（缺席消耗名额）
//	oral_test 出席且成绩 ≥ minGrade
//	其他      出席
func CompletedSubjects(history []model.AcademicHistory, programID string, minGrade float64) map[string]bool {
	done := make(map[string]bool)
	for i := range history {
		h := &history[i]
		if !belongs(h, programID) {
			continue
		}
		if IsCompletion(h, minGrade) {
			done[h.SubjectID] = true
		}
	}
	return done
}

// IsCompletion 单条学习记录是否构成科目完成
func IsCompletion(h *model.AcademicHistory, minGrade float64) bool {
	switch h.SubjectCategory {
	case model.CategoryBcheck:
		return h.Attended()
	case model.CategoryBskills:
		return h.Taken()
	case model.CategoryOralTest:
		return h.Attended() && h.Grade != nil && *h.Grade >= minGrade
	default:
		return h.Attended()
	}
}

func belongs(h *model.AcademicHistory, programID string) bool {
	return programID == "" || h.ProgramID == nil || *h.ProgramID == programID
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
