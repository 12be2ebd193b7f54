package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		name    string
		in      Classification
		ok      bool
		label   string
		tooltip string
	}{
		{
			name: "休假带详情",
			in: Classification{Status: StatusVacationConflict, Detail: &Conflict{
				Type: ConflictVacation, Reason: "verseny", StartDate: "03-01", EndDate: "03-03",
			}},
			ok: true, label: "休假", tooltip: "请假中：verseny（03-01 - 03-03）",
		},
		{
			name: "休假无详情",
			in:   Classification{Status: StatusVacationConflict},
			ok:   true, label: "休假", tooltip: "请假中",
		},
		{
			name: "电台带详情",
			in: Classification{Status: StatusRadioConflict, Detail: &Conflict{
				Type: ConflictRadioSession, RadioStab: "B2", Date: "2026-03-02", TimeFrom: "08:00", TimeTo: "09:00",
			}},
			ok: true, label: "电台", tooltip: "电台节目：B2 2026-03-02 08:00 - 09:00",
		},
		{
			name: "电台无详情",
			in:   Classification{Status: StatusRadioConflict, Detail: &Conflict{Type: ConflictRadioSession}},
			ok:   true, label: "电台", tooltip: "有电台节目",
		},
		{
			name: "可用",
			in:   Classification{Status: StatusAvailable},
			ok:   true, label: "可用", tooltip: "该场次无冲突",
		},
		{
			name: "未知不显示",
			in:   Classification{Status: StatusUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := BadgeFor(tt.in)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, Badge{}, b)
				return
			}
			assert.Equal(t, tt.in.Status, b.Status)
			assert.Equal(t, tt.label, b.Label)
			assert.Equal(t, tt.tooltip, b.Tooltip)
		})
	}
}

func TestJoinRange(t *testing.T) {
	assert.Equal(t, "a - b", joinRange("a", "b"))
	assert.Equal(t, "a 起", joinRange("a", ""))
	assert.Equal(t, "至 b", joinRange("", "b"))
	assert.Empty(t, joinRange("", ""))
}
