package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"mediaklub/backend/config"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(&config.TracingConfig{Enabled: false}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("未启用时不应返回错误: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown 不应返回错误: %v", err)
	}
}

func TestSetup_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(&config.TracingConfig{Enabled: true, ServiceName: "test", SampleRatio: 1}, &buf)
	if err != nil {
		t.Fatalf("Setup 应成功: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "crew.commit")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown 应成功: %v", err)
	}
	if !strings.Contains(buf.String(), "crew.commit") {
		t.Errorf("导出内容应包含 span 名称，实际: %s", buf.String())
	}
}
