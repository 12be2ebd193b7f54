package logger

import (
	"os"
	"testing"

	"go.uber.org/zap/zapcore"

	"mediaklub/backend/config"
)

func TestResolveFormat(t *testing.T) {
	if got := resolveFormat("json", 0); got != "json" {
		t.Errorf("显式格式应原样返回，实际 %s", got)
	}

	// 临时文件不是终端
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := resolveFormat("auto", f.Fd()); got != "json" {
		t.Errorf("非终端输出应使用 json，实际 %s", got)
	}
}

func TestSetLevel(t *testing.T) {
	_, atom, err := NewLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger 应成功: %v", err)
	}

	if err := SetLevel(atom, "debug"); err != nil {
		t.Fatalf("SetLevel 应成功: %v", err)
	}
	if atom.Level() != zapcore.DebugLevel {
		t.Errorf("期望 debug，实际 %s", atom.Level())
	}

	if err := SetLevel(atom, "verbose"); err == nil {
		t.Error("非法级别应返回错误")
	}
	if atom.Level() != zapcore.DebugLevel {
		t.Error("非法级别不应修改当前级别")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("非法日志级别应返回错误")
	}
}
