package crew

import (
	"fmt"
	"strings"
)

// Badge 组员旁显示的可用性徽标
type Badge struct {
	Status  Status `json:"status"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
}

// BadgeFor 将分类结果转换为徽标，StatusUnknown 不显示徽标
func BadgeFor(c Classification) (Badge, bool) {
	switch c.Status {
	case StatusVacationConflict:
		return Badge{Status: c.Status, Label: "休假", Tooltip: vacationTooltip(c.Detail)}, true
	case StatusRadioConflict:
		return Badge{Status: c.Status, Label: "电台", Tooltip: radioTooltip(c.Detail)}, true
	case StatusAvailable:
		return Badge{Status: c.Status, Label: "可用", Tooltip: "该场次无冲突"}, true
	default:
		return Badge{}, false
	}
}

func vacationTooltip(d *Conflict) string {
	if d == nil {
		return "请假中"
	}
	var b strings.Builder
	b.WriteString("请假中")
	if d.Reason != "" {
		b.WriteString("：")
		b.WriteString(d.Reason)
	}
	if span := joinRange(d.StartDate, d.EndDate); span != "" {
		fmt.Fprintf(&b, "（%s）", span)
	}
	return b.String()
}

func radioTooltip(d *Conflict) string {
	if d == nil {
		return "有电台节目"
	}
	parts := make([]string, 0, 3)
	if d.RadioStab != "" {
		parts = append(parts, d.RadioStab)
	}
	if d.Date != "" {
		parts = append(parts, d.Date)
	}
	if span := joinRange(d.TimeFrom, d.TimeTo); span != "" {
		parts = append(parts, span)
	}
	if len(parts) == 0 {
		return "有电台节目"
	}
	return "电台节目：" + strings.Join(parts, " ")
}

func joinRange(from, to string) string {
	switch {
	case from != "" && to != "":
		return from + " - " + to
	case from != "":
		return from + " 起"
	case to != "":
		return "至 " + to
	}
	return ""
}
