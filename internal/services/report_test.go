package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"studyshare/internal/models"
)

func TestResolvePeriodMonth(t *testing.T) {
	p := ResolvePeriod("month", 2026, 3, 0, "", "")
	if p.Start.Year() != 2026 || p.Start.Month() != time.March || p.Start.Day() != 1 {
		t.Errorf("Unexpected start: %v", p.Start)
	}
	if p.End.Month() != time.April {
		t.Errorf("Month period should end at next month, got %v", p.End)
	}
}

func TestResolvePeriodMonthKeepsSelectedYear(t *testing.T) {
	// 只选了年份时月份取当前月，但选定的年份不能被丢掉
	p := ResolvePeriod("month", 2024, 0, 0, "", "")
	if p.Start.Year() != 2024 {
		t.Errorf("Expected the requested year to be kept, got %v", p.Start)
	}
	if p.Start.Month() != time.Now().Month() {
		t.Errorf("Missing month should default to the current month, got %v", p.Start)
	}
}

func TestResolvePeriodQuarter(t *testing.T) {
	p := ResolvePeriod("quarter", 2026, 0, 2, "", "")
	if p.Start.Month() != time.April || p.End.Month() != time.July {
		t.Errorf("Q2 should span April to July, got %v - %v", p.Start, p.End)
	}
}

func TestResolvePeriodYear(t *testing.T) {
	p := ResolvePeriod("year", 2025, 0, 0, "", "")
	if p.Start.Year() != 2025 || p.End.Year() != 2026 {
		t.Errorf("Year period wrong: %v - %v", p.Start, p.End)
	}
}

func TestResolvePeriodCustom(t *testing.T) {
	p := ResolvePeriod("custom", 0, 0, 0, "2026-01-10", "2026-01-20")
	if p.Start.Day() != 10 {
		t.Errorf("Unexpected start: %v", p.Start)
	}
	// 区间右开，结束日当天应包含在内
	if p.End.Day() != 21 {
		t.Errorf("End should be the day after the requested end date, got %v", p.End)
	}

	// 起止颠倒退回默认（当前自然月）
	p = ResolvePeriod("custom", 0, 0, 0, "2026-01-20", "2026-01-10")
	now := time.Now()
	if p.Start.Month() != now.Month() {
		t.Errorf("Invalid custom range should fall back to current month, got %v", p.Start)
	}
}

func TestReportAggregates(t *testing.T) {
	setupTestDB(t)
	uploader := createTestUser(t, models.RoleStudent)
	downloader := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "考试资料")
	otherCategory := createTestCategory(t, "课程笔记")

	r1 := createTestResource(t, uploader.ID, category.ID, models.ResourceStatusApproved)
	createTestResource(t, uploader.ID, category.ID, models.ResourceStatusPending)
	createTestResource(t, uploader.ID, otherCategory.ID, models.ResourceStatusRejected)

	if _, err := RecordDownload(r1.ID, downloader.ID); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}

	now := time.Now()
	p := ResolvePeriod("month", now.Year(), int(now.Month()), 0, "", "")

	stats := GetOverallStats(p, 0)
	if stats.Total != 3 || stats.Approved != 1 || stats.Pending != 1 || stats.Rejected != 1 {
		t.Errorf("Unexpected overall stats: %+v", stats)
	}
	if stats.Downloads != 1 {
		t.Errorf("Expected 1 download in period, got %d", stats.Downloads)
	}

	// 分类过滤
	stats = GetOverallStats(p, category.ID)
	if stats.Total != 2 {
		t.Errorf("Expected 2 resources in category, got %d", stats.Total)
	}

	byCategory := GetCategoryBreakdown(p)
	if len(byCategory) != 2 {
		t.Fatalf("Expected 2 category rows, got %d", len(byCategory))
	}

	top := GetTopUploaders(p, 10)
	if len(top) != 1 || top[0].Count != 3 {
		t.Errorf("Unexpected top uploaders: %+v", top)
	}
}

func TestWriteReportCSV(t *testing.T) {
	setupTestDB(t)
	uploader := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "考试资料")
	createTestResource(t, uploader.ID, category.ID, models.ResourceStatusApproved)

	now := time.Now()
	p := ResolvePeriod("month", now.Year(), int(now.Month()), 0, "", "")

	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, p, 0); err != nil {
		t.Fatalf("WriteReportCSV failed: %v", err)
	}

	out := buf.String()
	for _, section := range []string{"总体统计", "每日上传", "分类统计", "下载排行", "上传排行"} {
		if !strings.Contains(out, section) {
			t.Errorf("CSV output missing section %s", section)
		}
	}
	if !strings.Contains(out, "资源总数,1") {
		t.Errorf("CSV should report 1 resource, got:\n%s", out)
	}
}
