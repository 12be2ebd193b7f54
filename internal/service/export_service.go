package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAssignment = errors.New("该场次尚未创建分配")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCrew 导出场次组员名单为 Excel，返回内容与建议文件名
	ExportCrew(ctx context.Context, sessionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo        *repository.Repository
	assignments AssignmentService
	users       UserService
	logger      *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, assignments AssignmentService, users UserService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, assignments: assignments, users: users, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportCrew 导出组员名单
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：场次名称、日期与时段（合并单元格）
//   - 第 2 行：状态（草稿 / 已定稿）与版本
//   - 第 3 行表头：序号 | 姓名 | 角色 | 班级 | Stab | 邮箱 | 电话 | 可用性
//   - 数据行按分配中的顺序输出

func (s *exportService) ExportCrew(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	// 1. 查询场次
	session, err := s.repo.FilmingSession.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSessionNotFound
		}
		s.logger.Error("查询拍摄场次失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 分配 + 可用性
	payload, err := s.assignments.GetWithAvailability(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if payload.Assignment == nil {
		return nil, "", ErrExportNoAssignment
	}

	// 3. 学生资料 → 名单
	profiles, err := s.users.ListDetailed(ctx)
	if err != nil {
		return nil, "", err
	}
	members := crew.Materialize(payload.Assignment.Pairs, profiles)
	index := crew.NewAvailabilityIndex(payload.Availability)

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "组员名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"序号", "姓名", "角色", "班级", "Stab", "邮箱", "电话", "可用性"}
	widths := []float64{6, 18, 16, 10, 12, 26, 16, 12}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	conflictStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	// 标题行
	lastCol := colName(len(headers) - 1)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s  %s %s-%s",
		session.Name, session.Date.Format(dateLayout), formatClock(session.TimeFrom), formatClock(session.TimeTo)))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	state := "草稿"
	if payload.Assignment.Finalized {
		state = "已定稿"
	}
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("状态：%s  版本：%d  人数：%d", state, payload.Assignment.Version, len(members)))
	f.MergeCell(sheetName, "A2", cell(lastCol, 2))

	// 表头
	row := 3
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 4
	for i, m := range members {
		values := []interface{}{i + 1, m.DisplayName, m.RoleName, m.ClassName, m.StabName, m.Email, m.Phone}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}

		label := "-"
		cl := index.Classify(m.StudentID)
		if badge, ok := crew.BadgeFor(cl); ok {
			label = badge.Label
		}
		f.SetCellValue(sheetName, cell(lastCol, row), label)
		if cl.HasConflict() {
			f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), conflictStyle)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("组员名单_%s_%s.xlsx", session.Name, session.Date.Format(dateLayout))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
