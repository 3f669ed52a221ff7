package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 系统角色
// student 只读自己的案例，advisor 执行导师决定，
// committee 参与投票，admin 拥有覆盖操作权限
const (
	RoleStudent   = "student"
	RoleAdvisor   = "advisor"
	RoleCommittee = "committee"
	RoleAdmin     = "admin"
)

// RequireRoles 角色校验中间件
// 上下文中的角色列表由 AuthMiddleware 写入，命中任意一个即放行
func RequireRoles(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("roles")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "no roles in context",
			})
			c.Abort()
			return
		}

		roles, ok := value.([]string)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "invalid roles in context",
			})
			c.Abort()
			return
		}

		for _, have := range roles {
			for _, want := range required {
				if have == want {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": "insufficient role",
		})
		c.Abort()
	}
}
