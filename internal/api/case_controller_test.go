package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aewaew419/internship-sub007/internal/service"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// setupCaseRouter 基于内存存储搭建测试路由,不挂认证
func setupCaseRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	caseStore := store.NewMemoryCaseStore()
	engine := workflow.NewEngine()
	controller := NewCaseController(
		service.NewCaseService(caseStore, nil),
		service.NewAdvisorService(caseStore, engine, nil, nil, 0),
		service.NewVotingService(caseStore, engine, nil, nil, 0),
		service.NewOverrideService(caseStore, engine, nil, nil, 0),
	)

	router := gin.New()
	cases := router.Group("/api/v1/cases")
	{
		cases.POST("", controller.Create)
		cases.GET(":id", controller.Get)
		cases.POST(":id/advisor-decision", controller.AdvisorDecide)
		cases.POST(":id/votes", controller.CastVote)
		cases.POST(":id/force-status", controller.ForceStatus)
		cases.POST(":id/cancel", controller.Cancel)
		cases.POST(":id/outcome", controller.SetOutcome)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createCase(t *testing.T, router *gin.Engine, enrollmentID string, committee []string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/cases", gin.H{
		"enrollment_id": enrollmentID,
		"student_id":    "std-001",
		"committee":     committee,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestCreateCase 测试创建案件接口
func TestCreateCase(t *testing.T) {
	router := setupCaseRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases", gin.H{
		"enrollment_id": "enr-001",
		"student_id":    "std-001",
		"committee":     []string{"ins-001", "ins-002", "ins-003"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
}

// TestCreateCase_BadRequest 测试缺少必填字段
func TestCreateCase_BadRequest(t *testing.T) {
	router := setupCaseRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases", gin.H{
		"enrollment_id": "enr-001",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestCreateCase_Duplicate 测试重复创建返回 409
func TestCreateCase_Duplicate(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases", gin.H{
		"enrollment_id": "enr-001",
		"student_id":    "std-002",
		"committee":     []string{"ins-001"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestGetCase_NotFound 测试查询不存在的案件返回 404
func TestGetCase_NotFound(t *testing.T) {
	router := setupCaseRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/cases/enr-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestGetCase_InvalidID 测试非法 ID 返回 400
func TestGetCase_InvalidID(t *testing.T) {
	router := setupCaseRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/cases/enr%20001", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAdvisorDecide_Twice 测试重复导师决定返回 409
func TestAdvisorDecide_Twice(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001"})

	body := gin.H{"advisor_id": "adv-001", "approved": true}
	w := doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/advisor-decision", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/advisor-decision", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestCastVote_Forbidden 测试非委员投票返回 403
func TestCastVote_Forbidden(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001", "ins-002", "ins-003"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/advisor-decision",
		gin.H{"advisor_id": "adv-001", "approved": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/votes",
		gin.H{"voter_id": "outsider", "choice": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestCastVote_Duplicate 测试重复投票返回 409
func TestCastVote_Duplicate(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001", "ins-002", "ins-003"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/advisor-decision",
		gin.H{"advisor_id": "adv-001", "approved": true})
	require.Equal(t, http.StatusOK, w.Code)

	body := gin.H{"voter_id": "ins-001", "choice": "approve"}
	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/votes", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/votes", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestForceStatus_BlockedTarget 测试覆盖到导师驳回态返回 409
func TestForceStatus_BlockedTarget(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/force-status",
		gin.H{"admin_id": "adm-001", "status": "advisor_rejected", "reason": "nope"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestFullLifecycle 测试完整生命周期: 创建→导师通过→投票决议→评成绩→取消
func TestFullLifecycle(t *testing.T) {
	router := setupCaseRouter(t)
	createCase(t, router, "enr-001", []string{"ins-001", "ins-002", "ins-003"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/advisor-decision",
		gin.H{"advisor_id": "adv-001", "approved": true})
	require.Equal(t, http.StatusOK, w.Code)

	for _, voter := range []string{"ins-001", "ins-002"} {
		w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/votes",
			gin.H{"voter_id": voter, "choice": "approve"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/outcome",
		gin.H{"actor_id": "adv-001", "outcome": "pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/cases/enr-001/cancel",
		gin.H{"admin_id": "adm-001", "reason": "student withdrew"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/cases/enr-001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data workflow.ApprovalCase `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, workflow.StatusCancelled, resp.Data.Status)
	assert.Equal(t, workflow.OutcomePass, resp.Data.FinalOutcome)
}

// TestDomainErrorMapping 测试领域错误到 HTTP 状态码的映射
func TestDomainErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		code int
	}{
		{workflow.ErrNotFound, http.StatusNotFound},
		{workflow.ErrAlreadyExists, http.StatusConflict},
		{workflow.ErrInvalidTransition, http.StatusConflict},
		{workflow.ErrDuplicateVote, http.StatusConflict},
		{workflow.ErrNotAuthorized, http.StatusForbidden},
		{workflow.ErrTransient, http.StatusServiceUnavailable},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		DomainError(c, fmt.Errorf("op: %w", tt.err), "do thing")
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}
