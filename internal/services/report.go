package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/gorm"
)

// Period 报表统计区间，[Start, End)
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// ResolvePeriod 把 month/quarter/year/custom 参数解析成时间区间
// 参数缺失或非法时退回当前自然月
func ResolvePeriod(periodType string, year, month, quarter int, startStr, endStr string) Period {
	now := time.Now()
	if year <= 0 {
		year = now.Year()
	}

	switch periodType {
	case "year":
		start := time.Date(year, 1, 1, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: start.AddDate(1, 0, 0), Label: fmt.Sprintf("%d年", year)}
	case "quarter":
		if quarter < 1 || quarter > 4 {
			quarter = (int(now.Month())-1)/3 + 1
		}
		start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: start.AddDate(0, 3, 0), Label: fmt.Sprintf("%d年第%d季度", year, quarter)}
	case "custom":
		start, err1 := time.ParseInLocation("2006-01-02", startStr, now.Location())
		end, err2 := time.ParseInLocation("2006-01-02", endStr, now.Location())
		if err1 == nil && err2 == nil && !end.Before(start) {
			return Period{Start: start, End: end.AddDate(0, 0, 1),
				Label: fmt.Sprintf("%s 至 %s", startStr, endStr)}
		}
	case "month":
		// 只给了年份时落在该年的当前月份，而不是丢掉年份
		if month < 1 || month > 12 {
			month = int(now.Month())
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: start.AddDate(0, 1, 0), Label: fmt.Sprintf("%d年%d月", year, month)}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0),
		Label: fmt.Sprintf("%d年%d月", now.Year(), int(now.Month()))}
}

// OverallStats 区间内的总量统计
type OverallStats struct {
	Total     int64
	Approved  int64
	Pending   int64
	Rejected  int64
	Downloads int64
	Views     int64
}

// DailyCount 按天分组的上传量
type DailyCount struct {
	Day   string
	Count int64
}

// CategoryCount 按分类分组
type CategoryCount struct {
	Name  string
	Count int64
}

// TypeCount 按文件类型分组
type TypeCount struct {
	FileType string
	Count    int64
}

// TopUploader 上传量排行
type TopUploader struct {
	UserID    uint
	FirstName string
	LastName  string
	Count     int64
}

func periodScope(p Period, categoryID uint) func(tx *gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("resources.created_at >= ? AND resources.created_at < ?", p.Start, p.End)
		if categoryID > 0 {
			tx = tx.Where("resources.category_id = ?", categoryID)
		}
		return tx
	}
}

// GetOverallStats 数量与下载/浏览总计；查询失败按空结果降级
func GetOverallStats(p Period, categoryID uint) OverallStats {
	var stats OverallStats
	base := db.DB.Model(&models.Resource{}).Scopes(periodScope(p, categoryID))

	base.Session(&gorm.Session{}).Count(&stats.Total)
	base.Session(&gorm.Session{}).Where("status = ?", models.ResourceStatusApproved).Count(&stats.Approved)
	base.Session(&gorm.Session{}).Where("status = ?", models.ResourceStatusPending).Count(&stats.Pending)
	base.Session(&gorm.Session{}).Where("status = ?", models.ResourceStatusRejected).Count(&stats.Rejected)

	type sums struct {
		Downloads int64
		Views     int64
	}
	var s sums
	db.DB.Model(&models.Resource{}).Scopes(periodScope(p, categoryID)).
		Select("COALESCE(SUM(download_count),0) as downloads, COALESCE(SUM(view_count),0) as views").
		Scan(&s)
	stats.Downloads = s.Downloads
	stats.Views = s.Views
	return stats
}

// GetDailyUploads 区间内按天的上传量
func GetDailyUploads(p Period, categoryID uint) []DailyCount {
	var rows []DailyCount
	db.DB.Model(&models.Resource{}).Scopes(periodScope(p, categoryID)).
		Select("DATE(resources.created_at) as day, COUNT(*) as count").
		Group("DATE(resources.created_at)").
		Order("day ASC").
		Scan(&rows)
	return rows
}

// GetCategoryBreakdown 区间内按分类的上传量
func GetCategoryBreakdown(p Period) []CategoryCount {
	var rows []CategoryCount
	db.DB.Model(&models.Resource{}).Scopes(periodScope(p, 0)).
		Select("resource_categories.name as name, COUNT(*) as count").
		Joins("JOIN resource_categories ON resource_categories.id = resources.category_id").
		Group("resource_categories.name").
		Order("count DESC").
		Scan(&rows)
	return rows
}

// GetFileTypeBreakdown 区间内按文件类型的上传量
func GetFileTypeBreakdown(p Period, categoryID uint) []TypeCount {
	var rows []TypeCount
	db.DB.Model(&models.Resource{}).Scopes(periodScope(p, categoryID)).
		Select("file_type, COUNT(*) as count").
		Group("file_type").
		Order("count DESC").
		Scan(&rows)
	return rows
}

// GetTopDownloads 区间内下载量前 N 的资源
func GetTopDownloads(p Period, categoryID uint, n int) []models.Resource {
	var resources []models.Resource
	db.DB.Preload("User").Preload("Category").Scopes(periodScope(p, categoryID)).
		Order("download_count DESC").
		Limit(n).
		Find(&resources)
	return resources
}

// GetTopUploaders 区间内上传量前 N 的用户
func GetTopUploaders(p Period, n int) []TopUploader {
	var rows []TopUploader
	db.DB.Model(&models.Resource{}).Scopes(periodScope(p, 0)).
		Select("resources.user_id as user_id, users.first_name, users.last_name, COUNT(*) as count").
		Joins("JOIN users ON users.id = resources.user_id").
		Group("resources.user_id, users.first_name, users.last_name").
		Order("count DESC").
		Limit(n).
		Scan(&rows)
	return rows
}

// WriteReportCSV 把整个报表按命名分节写成 CSV
func WriteReportCSV(w io.Writer, p Period, categoryID uint) error {
	cw := csv.NewWriter(w)

	stats := GetOverallStats(p, categoryID)
	cw.Write([]string{"总体统计", p.Label})
	cw.Write([]string{"指标", "数量"})
	cw.Write([]string{"资源总数", strconv.FormatInt(stats.Total, 10)})
	cw.Write([]string{"已通过", strconv.FormatInt(stats.Approved, 10)})
	cw.Write([]string{"待审核", strconv.FormatInt(stats.Pending, 10)})
	cw.Write([]string{"已驳回", strconv.FormatInt(stats.Rejected, 10)})
	cw.Write([]string{"下载总数", strconv.FormatInt(stats.Downloads, 10)})
	cw.Write([]string{"浏览总数", strconv.FormatInt(stats.Views, 10)})
	cw.Write([]string{})

	cw.Write([]string{"每日上传"})
	cw.Write([]string{"日期", "数量"})
	for _, row := range GetDailyUploads(p, categoryID) {
		cw.Write([]string{row.Day, strconv.FormatInt(row.Count, 10)})
	}
	cw.Write([]string{})

	cw.Write([]string{"分类统计"})
	cw.Write([]string{"分类", "数量"})
	for _, row := range GetCategoryBreakdown(p) {
		cw.Write([]string{row.Name, strconv.FormatInt(row.Count, 10)})
	}
	cw.Write([]string{})

	cw.Write([]string{"下载排行"})
	cw.Write([]string{"标题", "上传者", "下载次数"})
	for _, r := range GetTopDownloads(p, categoryID, 10) {
		cw.Write([]string{r.Title, r.User.FullName(), strconv.Itoa(r.DownloadCount)})
	}
	cw.Write([]string{})

	cw.Write([]string{"上传排行"})
	cw.Write([]string{"用户", "上传数量"})
	for _, u := range GetTopUploaders(p, 10) {
		cw.Write([]string{u.FirstName + " " + u.LastName, strconv.FormatInt(u.Count, 10)})
	}

	cw.Flush()
	return cw.Error()
}
