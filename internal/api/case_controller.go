package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aewaew419/internship-sub007/internal/service"
	"github.com/aewaew419/internship-sub007/internal/utils"
)

// CaseController 审批案件控制器
// 聚合创建、导师决定、委员投票和管理员覆盖四类写操作
type CaseController struct {
	caseService     service.CaseService
	advisorService  service.AdvisorService
	votingService   service.VotingService
	overrideService service.OverrideService
}

// NewCaseController 创建案件控制器
func NewCaseController(
	caseService service.CaseService,
	advisorService service.AdvisorService,
	votingService service.VotingService,
	overrideService service.OverrideService,
) *CaseController {
	return &CaseController{
		caseService:     caseService,
		advisorService:  advisorService,
		votingService:   votingService,
		overrideService: overrideService,
	}
}

// validateEnrollmentID 验证路径中的登记 ID 并返回错误响应（如果无效）
func (c *CaseController) validateEnrollmentID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateEnrollmentID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid enrollment ID", err.Error())
		return false
	}
	return true
}

// Create 创建审批案件
// @Summary      创建审批案件
// @Description  为实习登记创建审批案件,初始状态为已登记
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateCaseRequest true "案件信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases [post]
// @Security     BearerAuth
func (c *CaseController) Create(ctx *gin.Context) {
	var req service.CreateCaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	approvalCase, err := c.caseService.Create(ctx.Request.Context(), &req)
	if err != nil {
		DomainError(ctx, err, "create case")
		return
	}

	Success(ctx, approvalCase)
}

// Get 获取案件详情
// @Summary      获取案件详情
// @Description  根据登记 ID 获取案件完整快照
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id} [get]
// @Security     BearerAuth
func (c *CaseController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	approvalCase, err := c.caseService.Get(ctx.Request.Context(), id)
	if err != nil {
		DomainError(ctx, err, "get case")
		return
	}

	Success(ctx, approvalCase)
}

// AdvisorDecide 导师决定
// @Summary      导师决定
// @Description  导师通过或驳回已登记的案件,通过后进入委员会评审
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Param        request body service.AdvisorDecisionRequest true "决定信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id}/advisor-decision [post]
// @Security     BearerAuth
func (c *CaseController) AdvisorDecide(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	var req service.AdvisorDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	approvalCase, err := c.advisorService.Decide(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "record advisor decision")
		return
	}

	Success(ctx, approvalCase)
}

// CastVote 委员投票
// @Summary      委员投票
// @Description  委员会成员对评审中的案件投票,达到法定人数时自动决议
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Param        request body service.CastVoteRequest true "投票信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id}/votes [post]
// @Security     BearerAuth
func (c *CaseController) CastVote(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	var req service.CastVoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.votingService.CastVote(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "cast vote")
		return
	}

	Success(ctx, result)
}

// ForceStatus 管理员强制修改状态
// @Summary      强制修改案件状态
// @Description  管理员将案件状态改为安全清单内的状态,必须给出原因
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Param        request body service.ForceStatusRequest true "修改信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id}/force-status [post]
// @Security     BearerAuth
func (c *CaseController) ForceStatus(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	var req service.ForceStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	approvalCase, err := c.overrideService.ForceStatus(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "force status")
		return
	}

	Success(ctx, approvalCase)
}

// Cancel 取消已通过的案件
// @Summary      取消案件
// @Description  管理员取消已通过委员会评审的案件
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Param        request body service.CancelRequest true "取消信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id}/cancel [post]
// @Security     BearerAuth
func (c *CaseController) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	var req service.CancelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	approvalCase, err := c.overrideService.Cancel(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "cancel case")
		return
	}

	Success(ctx, approvalCase)
}

// SetOutcome 评定最终成绩
// @Summary      评定最终成绩
// @Description  对已通过委员会评审的案件评定 pass 或 failed
// @Tags         案件管理
// @Accept       json
// @Produce      json
// @Param        id path string true "登记 ID"
// @Param        request body service.SetOutcomeRequest true "成绩信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /cases/{id}/outcome [post]
// @Security     BearerAuth
func (c *CaseController) SetOutcome(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateEnrollmentID(ctx, id) {
		return
	}

	var req service.SetOutcomeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	approvalCase, err := c.overrideService.SetFinalOutcome(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "set final outcome")
		return
	}

	Success(ctx, approvalCase)
}
