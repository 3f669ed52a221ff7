package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aewaew419/internship-sub007/internal/service"
	"github.com/aewaew419/internship-sub007/internal/utils"
)

// QueryController 案件查询控制器
type QueryController struct {
	queryService service.QueryService
	statsService service.StatisticsService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService, statsService service.StatisticsService) *QueryController {
	return &QueryController{
		queryService: queryService,
		statsService: statsService,
	}
}

// parsePagination 解析分页参数
func parsePagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// optionalQuery 读取可选的 query 参数
func optionalQuery(ctx *gin.Context, key string) *string {
	if value := ctx.Query(key); value != "" {
		sanitized := utils.SanitizeString(value)
		return &sanitized
	}
	return nil
}

// GetStatus 获取案件状态
// @Summary      获取案件状态
// @Description  返回案件当前状态、计票和法定人数信息
// @Tags         案件查询
// @Produce      json
// @Param        id path string true "登记 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /cases/{id}/status [get]
// @Security     BearerAuth
func (c *QueryController) GetStatus(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateEnrollmentID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid enrollment ID", err.Error())
		return
	}

	status, err := c.queryService.GetStatus(ctx.Request.Context(), id)
	if err != nil {
		DomainError(ctx, err, "get case status")
		return
	}

	Success(ctx, status)
}

// ListCases 查询案件列表
// @Summary      查询案件列表
// @Description  按状态、学生、导师等条件分页查询案件
// @Tags         案件查询
// @Produce      json
// @Param        status query string false "状态过滤"
// @Param        student_id query string false "学生 ID 过滤"
// @Param        advisor_id query string false "导师 ID 过滤"
// @Param        search query string false "登记 ID 前缀搜索"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /cases [get]
// @Security     BearerAuth
func (c *QueryController) ListCases(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx)

	filter := &service.ListCasesFilter{
		Status:    optionalQuery(ctx, "status"),
		StudentID: optionalQuery(ctx, "student_id"),
		AdvisorID: optionalQuery(ctx, "advisor_id"),
		Search:    optionalQuery(ctx, "search"),
		StartTime: optionalQuery(ctx, "start_time"),
		EndTime:   optionalQuery(ctx, "end_time"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    ctx.DefaultQuery("sort_by", "created_at"),
		Order:     ctx.DefaultQuery("order", "desc"),
	}

	cases, total, err := c.queryService.ListCases(ctx.Request.Context(), filter)
	if err != nil {
		DomainError(ctx, err, "list cases")
		return
	}

	Paginated(ctx, cases, PaginationInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: int((total + int64(pageSize) - 1) / int64(pageSize)),
	})
}

// GetHistory 获取案件状态历史
// @Summary      获取案件状态历史
// @Description  按时间升序返回案件的全部状态变迁记录
// @Tags         案件查询
// @Produce      json
// @Param        id path string true "登记 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /cases/{id}/history [get]
// @Security     BearerAuth
func (c *QueryController) GetHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateEnrollmentID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid enrollment ID", err.Error())
		return
	}

	history, err := c.queryService.GetHistory(ctx.Request.Context(), id)
	if err != nil {
		DomainError(ctx, err, "get case history")
		return
	}

	Success(ctx, history)
}

// ListAttentionQueue 查询待关注队列
// @Summary      查询待关注队列
// @Description  返回评审停滞超窗或带冲突标记的案件
// @Tags         案件查询
// @Produce      json
// @Param        status query string false "状态过滤"
// @Param        search query string false "登记 ID 前缀搜索"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Router       /cases/attention-queue [get]
// @Security     BearerAuth
func (c *QueryController) ListAttentionQueue(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx)

	filter := &service.AttentionQueueFilter{
		Status:   optionalQuery(ctx, "status"),
		Search:   optionalQuery(ctx, "search"),
		Page:     page,
		PageSize: pageSize,
	}

	entries, total, err := c.queryService.ListAttentionQueue(ctx.Request.Context(), filter)
	if err != nil {
		DomainError(ctx, err, "list attention queue")
		return
	}

	Paginated(ctx, entries, PaginationInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: int((total + int64(pageSize) - 1) / int64(pageSize)),
	})
}

// GetStatistics 获取案件统计
// @Summary      获取案件统计
// @Description  返回按状态、按时间的案件统计以及决议统计
// @Tags         案件查询
// @Produce      json
// @Success      200  {object}  Response
// @Router       /cases/statistics [get]
// @Security     BearerAuth
func (c *QueryController) GetStatistics(ctx *gin.Context) {
	byStatus, err := c.statsService.GetCaseStatisticsByStatus()
	if err != nil {
		DomainError(ctx, err, "get statistics")
		return
	}

	byTime, err := c.statsService.GetCaseStatisticsByTime()
	if err != nil {
		DomainError(ctx, err, "get statistics")
		return
	}

	resolution, err := c.statsService.GetResolutionStatistics()
	if err != nil {
		DomainError(ctx, err, "get statistics")
		return
	}

	Success(ctx, gin.H{
		"by_status":  byStatus,
		"by_time":    byTime,
		"resolution": resolution,
	})
}
