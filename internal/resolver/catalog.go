package resolver

import (
	"sort"

	"ailumex-academy/internal/model"
)

// catalog 项目内科目索引，按 (单元, 序号, 编码) 排序保证结果确定
type catalog struct {
	subjects []*model.Subject
	byID     map[string]*model.Subject
}

func newCatalog(subjects []model.Subject, programID string) *catalog {
	c := &catalog{byID: make(map[string]*model.Subject, len(subjects))}
	for i := range subjects {
		s := &subjects[i]
		c.byID[s.SubjectID] = s
		if programID != "" && s.ProgramID != programID {
			continue
		}
		c.subjects = append(c.subjects, s)
	}
	sort.SliceStable(c.subjects, func(i, j int) bool {
		a, b := c.subjects[i], c.subjects[j]
		if a.Unit() != b.Unit() {
			return a.Unit() < b.Unit()
		}
		if a.Slot() != b.Slot() {
			return a.Slot() < b.Slot()
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.SubjectID < b.SubjectID
	})
	return c
}

// byUnit 返回类别 + 单元匹配的科目；没有单元化科目时回退到未设置单元的同类科目
func (c *catalog) byUnit(category string, unit int) []*model.Subject {
	var exact, loose []*model.Subject
	for _, s := range c.subjects {
		if s.Category != category {
			continue
		}
		switch {
		case s.UnitNumber == nil:
			loose = append(loose, s)
		case *s.UnitNumber == unit:
			exact = append(exact, s)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return loose
}

func (c *catalog) first(category string, unit int) *model.Subject {
	for _, s := range c.subjects {
		if s.Category == category && s.UnitNumber != nil && *s.UnitNumber == unit {
			return s
		}
	}
	return nil
}

func (c *catalog) bskill(unit, slot int) *model.Subject {
	for _, s := range c.subjects {
		if s.Category == model.CategoryBskills && s.Unit() == unit && s.Slot() == slot {
			return s
		}
	}
	return nil
}

func (c *catalog) oralTest(start, end int) *model.Subject {
	for _, s := range c.subjects {
		if s.Category != model.CategoryOralTest || s.UnitBlockStart == nil || s.UnitBlockEnd == nil {
			continue
		}
		if *s.UnitBlockStart == start && *s.UnitBlockEnd == end {
			return s
		}
	}
	return nil
}
