package metrics

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRecordRun(t *testing.T) {
	c := NewCollector()
	c.RecordRun("whatsapp", 2*time.Second, nil)
	c.RecordRun("whatsapp", 80*time.Second, fmt.Errorf("model down"))
	c.RecordRun("telegram", time.Second, nil)

	out := c.render()

	for _, want := range []string{
		`salesbot_runs_total{transport="telegram"} 1`,
		`salesbot_runs_total{transport="whatsapp"} 2`,
		`salesbot_run_failures_total{transport="whatsapp"} 1`,
		`salesbot_run_duration_seconds_count 3`,
		`salesbot_run_duration_seconds_bucket{le="+Inf"} 3`,
		`salesbot_run_duration_seconds_bucket{le="2"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `salesbot_run_failures_total{transport="telegram"}`) {
		t.Error("telegram had no failures, must not be listed")
	}
}

func TestRender_EmptyCollector(t *testing.T) {
	out := NewCollector().render()
	if !strings.Contains(out, "salesbot_uptime_seconds") {
		t.Errorf("uptime missing:\n%s", out)
	}
	if !strings.Contains(out, "salesbot_run_duration_seconds_count 0") {
		t.Errorf("empty histogram must still render:\n%s", out)
	}
}
