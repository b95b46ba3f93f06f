package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangsam/examlens/core"
	"github.com/huangsam/examlens/core/identity"
	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/ingest"
	"github.com/huangsam/examlens/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	loader  *ingest.Loader
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) subjects(request mcp.CallToolRequest) []string {
	if s := contract.ParseSubjects(request.GetString("subjects", "")); len(s) > 0 {
		return s
	}
	if len(h.baseCfg.Subjects) > 0 {
		return h.baseCfg.Subjects
	}
	return schema.DefaultSubjects
}

func (h *toolHandler) school(request mcp.CallToolRequest) string {
	return request.GetString("school", h.baseCfg.TargetSchool)
}

// loadExam reads students and, when given, the assignment table.
func (h *toolHandler) loadExam(studentsPath, assignmentsPath string) ([]schema.StudentRecord, schema.AssignmentTable, error) {
	if studentsPath == "" {
		return nil, nil, errors.New("students_path is required")
	}
	students, err := h.loader.Students(studentsPath)
	if err != nil {
		return nil, nil, err
	}
	if assignmentsPath == "" {
		return students, nil, nil
	}
	payload, err := h.loader.Assignments(assignmentsPath)
	if err != nil {
		return nil, nil, err
	}
	table, err := payload.Table()
	if err != nil {
		return nil, nil, err
	}
	return students, table, nil
}

func (h *toolHandler) handleAnalyzeSchools(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	students, _, err := h.loadExam(request.GetString("students_path", ""), "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load students: %v", err)), nil
	}
	metrics := core.AggregateSchools(students, h.subjects(request), h.baseCfg.Thresholds)
	return jsonResult(metrics), nil
}

func (h *toolHandler) handleAnalyzeTeachers(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	school := h.school(request)
	if school == "" {
		return mcp.NewToolResultError("school is required"), nil
	}
	students, table, err := h.loadExam(request.GetString("students_path", ""), request.GetString("assignments_path", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load inputs: %v", err)), nil
	}
	analysis := core.AnalyzeTeachers(students, table, school, h.subjects(request), h.baseCfg.Thresholds)
	return jsonResult(analysis), nil
}

func (h *toolHandler) handleTownshipRanking(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	school := h.school(request)
	subject := request.GetString("subject", "")
	if school == "" || subject == "" {
		return mcp.NewToolResultError("school and subject are required"), nil
	}
	students, table, err := h.loadExam(request.GetString("students_path", ""), request.GetString("assignments_path", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load inputs: %v", err)), nil
	}
	analysis := core.AnalyzeExam(core.ExamInput{
		Students:    students,
		Assignments: table,
		School:      school,
		Subject:     subject,
		Subjects:    h.subjects(request),
		Thresholds:  h.baseCfg.Thresholds,
	})
	return jsonResult(analysis.Township), nil
}

func (h *toolHandler) handleCompareExams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teacher := request.GetString("teacher", "")
	subject := request.GetString("subject", "")
	if teacher == "" || subject == "" {
		return mcp.NewToolResultError("teacher and subject are required"), nil
	}

	base := core.ExamInput{
		School:     h.school(request),
		Subject:    subject,
		Subjects:   h.subjects(request),
		Thresholds: h.baseCfg.Thresholds,
	}
	before, after := base, base
	before.Tag, after.Tag = core.MidtermTag, core.FinalTag

	if request.GetBool("demo", false) {
		var err error
		if before.Students, err = core.DemoExam(core.MidtermTag); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if after.Students, err = core.DemoExam(core.FinalTag); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		before.Assignments, after.Assignments = core.DemoAssignments(), core.DemoAssignments()
		if before.School == "" {
			before.School, after.School = core.DemoSchool, core.DemoSchool
		}
	} else {
		if base.School == "" {
			return mcp.NewToolResultError("school is required"), nil
		}
		assignments := request.GetString("assignments_path", "")
		var err error
		if before.Students, before.Assignments, err = h.loadExam(request.GetString("before_path", ""), assignments); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load before exam: %v", err)), nil
		}
		if after.Students, after.Assignments, err = h.loadExam(request.GetString("after_path", ""), assignments); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load after exam: %v", err)), nil
		}
	}

	report, err := core.CompareExams(ctx, before, after, core.CompareOptions{Teacher: teacher, ExpectedCount: h.baseCfg.ExpectedCount})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}
	return jsonResult(report), nil
}

func (h *toolHandler) handleExamKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exam := h.baseCfg.Sync.Exam
	meta := schema.ExamMeta{
		CohortID: request.GetString("cohort", exam.CohortID),
		Grade:    request.GetString("grade", exam.Grade),
		Year:     request.GetString("year", exam.Year),
		Term:     request.GetString("term", exam.Term),
		ExamType: request.GetString("exam_type", exam.ExamType),
		ExamName: request.GetString("exam_name", exam.ExamName),
	}
	key, ok := keys.ExamKey(meta)
	if !ok {
		return mcp.NewToolResultError("cohort, year, term and exam_type are required"), nil
	}
	return jsonResult(map[string]any{"key": key, "exam": meta}), nil
}

func (h *toolHandler) handleTeacherKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cohort := request.GetString("cohort", h.baseCfg.Sync.CohortID)
	termID := request.GetString("term_id", h.baseCfg.Sync.TermID)
	res, ok := keys.TeacherKey(cohort, termID)
	if !ok {
		return mcp.NewToolResultError("a cohort or a term_id with a grade is required"), nil
	}
	return jsonResult(res), nil
}

func (h *toolHandler) handleMatchStudent(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, _, err := h.loadExam(request.GetString("roster_path", ""), "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load roster: %v", err)), nil
	}
	target := identity.ResolveTarget(schema.MatchTarget{
		Name:   request.GetString("name", ""),
		Class:  request.GetString("class", ""),
		School: request.GetString("school", ""),
	}, h.baseCfg.Sync.User)
	if target.Name == "" && target.Class == "" {
		return mcp.NewToolResultError("name or class is required"), nil
	}
	return jsonResult(identity.PickSelf(rows, target)), nil
}
