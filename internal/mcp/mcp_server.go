// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/ingest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewMCPServer initializes and configures the examlens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"examlens Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		loader:  ingest.NewLoader(logger, baseCfg.Sync.DefaultSchool),
	}

	// --- 1. Tool: analyze_schools ---
	s.AddTool(mcp.NewTool("analyze_schools",
		mcp.WithDescription("Aggregate per-school subject metrics and peer ranks from a score sheet."),
		mcp.WithString("students_path", mcp.Description("Score sheet (.xlsx, .csv or .json)."), mcp.Required()),
		mcp.WithString("subjects", mcp.Description("Comma-separated subjects (defaults to the configured subjects).")),
	), h.handleAnalyzeSchools)

	// --- 2. Tool: analyze_teachers ---
	s.AddTool(mcp.NewTool("analyze_teachers",
		mcp.WithDescription("Compute teacher statistics and final scores for one school."),
		mcp.WithString("students_path", mcp.Description("Score sheet (.xlsx, .csv or .json)."), mcp.Required()),
		mcp.WithString("assignments_path", mcp.Description("Teacher assignment table (.yaml, .json or .csv)."), mcp.Required()),
		mcp.WithString("school", mcp.Description("Target school (defaults to the configured target school).")),
	), h.handleAnalyzeTeachers)

	// --- 3. Tool: township_ranking ---
	s.AddTool(mcp.NewTool("township_ranking",
		mcp.WithDescription("Rank a school's teachers against peer schools for one subject."),
		mcp.WithString("students_path", mcp.Description("Score sheet (.xlsx, .csv or .json)."), mcp.Required()),
		mcp.WithString("assignments_path", mcp.Description("Teacher assignment table."), mcp.Required()),
		mcp.WithString("subject", mcp.Description("Subject to rank."), mcp.Required()),
		mcp.WithString("school", mcp.Description("Target school.")),
	), h.handleTownshipRanking)

	// --- 4. Tool: compare_exams ---
	s.AddTool(mcp.NewTool("compare_exams",
		mcp.WithDescription("Compare two exams for a school, teacher and subject, with validation checks."),
		mcp.WithBoolean("demo", mcp.Description("Use the built-in demo exams instead of files.")),
		mcp.WithString("before_path", mcp.Description("Score sheet of the earlier exam.")),
		mcp.WithString("after_path", mcp.Description("Score sheet of the later exam.")),
		mcp.WithString("assignments_path", mcp.Description("Teacher assignment table.")),
		mcp.WithString("school", mcp.Description("Target school.")),
		mcp.WithString("teacher", mcp.Description("Teacher to follow."), mcp.Required()),
		mcp.WithString("subject", mcp.Description("Subject the teacher teaches."), mcp.Required()),
	), h.handleCompareExams)

	// --- 5. Tool: exam_key ---
	s.AddTool(mcp.NewTool("exam_key",
		mcp.WithDescription("Compute the shared-store key of an exam snapshot."),
		mcp.WithString("cohort", mcp.Description("Enrollment cohort, e.g. 2023.")),
		mcp.WithString("grade", mcp.Description("Grade number.")),
		mcp.WithString("year", mcp.Description("Exam year.")),
		mcp.WithString("term", mcp.Description("Term, e.g. 上学期.")),
		mcp.WithString("exam_type", mcp.Description("Exam type, e.g. 期中.")),
		mcp.WithString("exam_name", mcp.Description("Exam name (defaults to 标准考试).")),
	), h.handleExamKey)

	// --- 6. Tool: teacher_key ---
	s.AddTool(mcp.NewTool("teacher_key",
		mcp.WithDescription("Compute the shared-store key of a teacher assignment table."),
		mcp.WithString("cohort", mcp.Description("Enrollment cohort; inferred from term_id when empty.")),
		mcp.WithString("term_id", mcp.Description("Term id, e.g. 2025-2026_上学期_9年级.")),
	), h.handleTeacherKey)

	// --- 7. Tool: match_student ---
	s.AddTool(mcp.NewTool("match_student",
		mcp.WithDescription("Find a student's own row in a roster by name, class and school."),
		mcp.WithString("roster_path", mcp.Description("Roster or score sheet."), mcp.Required()),
		mcp.WithString("name", mcp.Description("Student name (defaults to the configured user).")),
		mcp.WithString("class", mcp.Description("Class id.")),
		mcp.WithString("school", mcp.Description("School.")),
	), h.handleMatchStudent)

	return s
}

// StartMCPServer starts the examlens MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, logger *zap.Logger) error {
	s := NewMCPServer(baseCfg, logger)
	return server.ServeStdio(s)
}
