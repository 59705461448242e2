package plan_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/yeisme/teamvault/pkg/plan"
)

// TestFormatBytes 测试字节格式化.
func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 * plan.MiB, "10.0 MB"},
		{50 * plan.MiB, "50.0 MB"},
		{10 * plan.GiB, "10.0 GB"},
	}

	for _, c := range cases {
		if got := plan.FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestParse 未知计划回退为 free.
func TestParse(t *testing.T) {
	if plan.Parse("PRO") != plan.Pro {
		t.Error("expected pro")
	}

	if plan.Parse("") != plan.Free || plan.Parse("enterprise") != plan.Free {
		t.Error("unknown plan should default to free")
	}
}

// TestCheckFileSize 9MB 允许，45MB 超过 free 的单文件上限.
func TestCheckFileSize(t *testing.T) {
	if err := plan.CheckFileSize(plan.Free, 9*plan.MiB); err != nil {
		t.Fatalf("9MB should pass: %v", err)
	}

	if err := plan.CheckFileSize(plan.Free, 10*plan.MiB); err != nil {
		t.Fatalf("exactly 10MB should pass: %v", err)
	}

	err := plan.CheckFileSize(plan.Free, 45*plan.MiB)

	var le *plan.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected LimitError, got %v", err)
	}

	if le.Type != plan.LimitFileSize || le.CurrentUsage != 45*plan.MiB || le.Limit != 10*plan.MiB {
		t.Errorf("unexpected fields %+v", le)
	}

	if le.Error() != "File size exceeds limit for your plan. Maximum file size is 10.0 MB." {
		t.Errorf("unexpected message %q", le.Error())
	}

	if err := plan.CheckFileSize(plan.Pro, 45*plan.MiB); err != nil {
		t.Errorf("pro should allow 45MB: %v", err)
	}
}

// TestCheckStorage 49MB 已用时再上传 2MB 超限.
func TestCheckStorage(t *testing.T) {
	err := plan.CheckStorage(plan.Free, 49*plan.MiB, 2*plan.MiB)

	var le *plan.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected LimitError, got %v", err)
	}

	if le.Type != plan.LimitStorage || le.CurrentUsage != 49*plan.MiB || le.Limit != 50*plan.MiB {
		t.Errorf("unexpected fields %+v", le)
	}

	if !strings.Contains(le.Error(), "You're using 49.0 MB of 50.0 MB") || !strings.Contains(le.Error(), "Upgrade to Pro") {
		t.Errorf("unexpected message %q", le.Error())
	}

	if err := plan.CheckStorage(plan.Free, 50*plan.MiB-1000, 1001); err == nil {
		t.Error("one byte over the limit should fail")
	}

	if err := plan.CheckStorage(plan.Free, 0, 5*plan.MiB); err != nil {
		t.Errorf("5MB on empty account should pass: %v", err)
	}

	if err := plan.CheckStorage(plan.Free, 0, 50*plan.MiB); err != nil {
		t.Errorf("reaching exactly the limit should pass: %v", err)
	}
}

// TestCheckWorkspaceCount free 最多 3 个，pro 不限.
func TestCheckWorkspaceCount(t *testing.T) {
	if err := plan.CheckWorkspaceCount(plan.Free, 2); err != nil {
		t.Errorf("2 workspaces should pass: %v", err)
	}

	err := plan.CheckWorkspaceCount(plan.Free, 3)
	if err == nil || err.Error() != "Free plan allows up to 3 workspaces. Upgrade to Pro for unlimited workspaces." {
		t.Errorf("unexpected error %v", err)
	}

	if err := plan.CheckWorkspaceCount(plan.Pro, 1000); err != nil {
		t.Errorf("pro should be unlimited: %v", err)
	}
}

// TestCheckInviteAllowed 仅 pro 允许邀请.
func TestCheckInviteAllowed(t *testing.T) {
	var le *plan.LimitError
	if err := plan.CheckInviteAllowed(plan.Free); !errors.As(err, &le) || le.Type != plan.LimitInvite {
		t.Errorf("free should not allow invites, got %v", err)
	}

	if err := plan.CheckInviteAllowed(plan.Pro); err != nil {
		t.Errorf("pro should allow invites: %v", err)
	}
}

// TestPercentage 百分比不超过 100.
func TestPercentage(t *testing.T) {
	if plan.Percentage(25, 100) != 25 {
		t.Error("expected 25")
	}

	if plan.Percentage(300, 100) != 100 {
		t.Error("expected cap at 100")
	}

	if plan.Percentage(1, 0) != 0 {
		t.Error("expected 0 for zero total")
	}
}
