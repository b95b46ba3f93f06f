// Package parquet provides data structures and functions for exporting exam
// analysis data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/examlens/schema"
	"github.com/parquet-go/parquet-go"
)

// File names written by ExportExam.
const (
	SchoolMetricsFile = "school_metrics.parquet"
	TeacherStatsFile  = "teacher_stats.parquet"
	TownshipFile      = "township_rankings.parquet"
)

// SchoolMetricRow is one school's statistics for one subject, or for the total.
type SchoolMetricRow struct {
	// ExamTag labels the exam the row belongs to
	ExamTag string `parquet:"exam_tag,snappy"`

	// ExportedAt is when the export ran (stored as TIMESTAMP with nanosecond precision)
	ExportedAt time.Time `parquet:"exported_at,snappy"`

	School   string  `parquet:"school,snappy"`
	Subject  string  `parquet:"subject,snappy"`
	Count    int32   `parquet:"count,snappy"`
	Avg      float64 `parquet:"avg,snappy"`
	ExcRate  float64 `parquet:"exc_rate,snappy"`
	PassRate float64 `parquet:"pass_rate,snappy"`

	// Ranks are null when the school has no scores for the subject
	RankAvg  *int32 `parquet:"rank_avg,optional,snappy"`
	RankExc  *int32 `parquet:"rank_exc,optional,snappy"`
	RankPass *int32 `parquet:"rank_pass,optional,snappy"`

	// Score2Rate and Rank2Rate are only set on total rows
	Score2Rate *float64 `parquet:"score_2rate,optional,snappy"`
	Rank2Rate  *int32   `parquet:"rank_2rate,optional,snappy"`
}

// TeacherStatRow is one teacher's pooled statistics for one subject.
type TeacherStatRow struct {
	ExamTag       string    `parquet:"exam_tag,snappy"`
	ExportedAt    time.Time `parquet:"exported_at,snappy"`
	School        string    `parquet:"school,snappy"`
	Teacher       string    `parquet:"teacher,snappy"`
	Subject       string    `parquet:"subject,snappy"`
	Classes       string    `parquet:"classes,snappy"`
	StudentCount  int32     `parquet:"student_count,snappy"`
	Avg           float64   `parquet:"avg,snappy"`
	Contribution  float64   `parquet:"contribution,snappy"`
	ExcellentRate float64   `parquet:"excellent_rate,snappy"`
	PassRate      float64   `parquet:"pass_rate,snappy"`
	LowRate       float64   `parquet:"low_rate,snappy"`
	FinalScore    float64   `parquet:"final_score,snappy"`
}

// RankingRow is one entry of a township ranking.
type RankingRow struct {
	ExamTag       string    `parquet:"exam_tag,snappy"`
	ExportedAt    time.Time `parquet:"exported_at,snappy"`
	Subject       string    `parquet:"subject,snappy"`
	Name          string    `parquet:"name,snappy"`
	Kind          string    `parquet:"kind,snappy"`
	Avg           float64   `parquet:"avg,snappy"`
	ExcellentRate float64   `parquet:"excellent_rate,snappy"`
	PassRate      float64   `parquet:"pass_rate,snappy"`
	RankAvg       *int32    `parquet:"rank_avg,optional,snappy"`
	RankExc       *int32    `parquet:"rank_exc,optional,snappy"`
	RankPass      *int32    `parquet:"rank_pass,optional,snappy"`
}

// writeRows writes a slice of rows to a Parquet file, inferring the schema from T's tags.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteSchoolMetricsParquet writes school metric rows to a Parquet file.
func WriteSchoolMetricsParquet(data []SchoolMetricRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteTeacherStatsParquet writes teacher statistic rows to a Parquet file.
func WriteTeacherStatsParquet(data []TeacherStatRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteRankingsParquet writes township ranking rows to a Parquet file.
func WriteRankingsParquet(data []RankingRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// optRank maps the unranked zero to null.
func optRank(rank int) *int32 {
	if rank <= 0 {
		return nil
	}
	r := int32(rank)
	return &r
}

// ConvertSchoolMetrics flattens school metrics into rows, the total row after each school's subjects.
func ConvertSchoolMetrics(tag string, at time.Time, metrics schema.SchoolMetrics) []SchoolMetricRow {
	var rows []SchoolMetricRow
	for _, sm := range metrics.Schools {
		for _, sub := range metrics.Subjects {
			m := sm.Subjects[sub]
			rows = append(rows, SchoolMetricRow{
				ExamTag: tag, ExportedAt: at, School: sm.School, Subject: sub,
				Count: int32(m.Count), Avg: m.Avg, ExcRate: m.ExcRate, PassRate: m.PassRate,
				RankAvg: optRank(m.RankAvg), RankExc: optRank(m.RankExc), RankPass: optRank(m.RankPass),
			})
		}
		t := sm.Total
		score2Rate := t.Score2Rate
		rows = append(rows, SchoolMetricRow{
			ExamTag: tag, ExportedAt: at, School: sm.School, Subject: schema.TotalSubject,
			Count: int32(t.Count), Avg: t.Avg, ExcRate: t.ExcRate, PassRate: t.PassRate,
			RankAvg: optRank(t.RankAvg), RankExc: optRank(t.RankExc), RankPass: optRank(t.RankPass),
			Score2Rate: &score2Rate, Rank2Rate: optRank(t.Rank2Rate),
		})
	}
	return rows
}

// ConvertTeacherStats converts teacher statistics into rows.
func ConvertTeacherStats(tag string, at time.Time, analysis schema.TeacherAnalysis) []TeacherStatRow {
	rows := make([]TeacherStatRow, len(analysis.Stats))
	for i, st := range analysis.Stats {
		rows[i] = TeacherStatRow{
			ExamTag:       tag,
			ExportedAt:    at,
			School:        analysis.School,
			Teacher:       st.Teacher,
			Subject:       st.Subject,
			Classes:       strings.Join(st.Classes, ","),
			StudentCount:  int32(st.StudentCount),
			Avg:           st.Avg,
			Contribution:  st.Contribution,
			ExcellentRate: st.ExcellentRate,
			PassRate:      st.PassRate,
			LowRate:       st.LowRate,
			FinalScore:    st.FinalScore,
		}
	}
	return rows
}

// ConvertRanking converts a township ranking into rows.
func ConvertRanking(tag string, at time.Time, ranking schema.TownshipRanking) []RankingRow {
	rows := make([]RankingRow, len(ranking.Entries))
	for i, e := range ranking.Entries {
		rows[i] = RankingRow{
			ExamTag:       tag,
			ExportedAt:    at,
			Subject:       ranking.Subject,
			Name:          e.Name,
			Kind:          string(e.Kind),
			Avg:           e.Avg,
			ExcellentRate: e.ExcellentRate,
			PassRate:      e.PassRate,
			RankAvg:       optRank(e.RankAvg),
			RankExc:       optRank(e.RankExc),
			RankPass:      optRank(e.RankPass),
		}
	}
	return rows
}

// ExportExam writes the three tables of an analysis into dir and returns the written paths.
// Teacher and township files are skipped when the analysis has no teacher data.
func ExportExam(dir string, at time.Time, analysis schema.ExamAnalysis) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var written []string

	path := filepath.Join(dir, SchoolMetricsFile)
	if err := WriteSchoolMetricsParquet(ConvertSchoolMetrics(analysis.Tag, at, analysis.Metrics), path); err != nil {
		return written, err
	}
	written = append(written, path)

	if len(analysis.Teachers.Stats) == 0 {
		return written, nil
	}
	path = filepath.Join(dir, TeacherStatsFile)
	if err := WriteTeacherStatsParquet(ConvertTeacherStats(analysis.Tag, at, analysis.Teachers), path); err != nil {
		return written, err
	}
	written = append(written, path)

	path = filepath.Join(dir, TownshipFile)
	if err := WriteRankingsParquet(ConvertRanking(analysis.Tag, at, analysis.Township), path); err != nil {
		return written, err
	}
	return append(written, path), nil
}
