package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestIssuer 启动一个提供 JWKS 端点的测试 OIDC Provider
// 返回 issuer URL、签名私钥和 kid
func newTestIssuer(t *testing.T) (*httptest.Server, *rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kid := "test-key-1"

	mux := http.NewServeMux()
	mux.HandleFunc("/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
		e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"keys":[{"kid":"%s","kty":"RSA","use":"sig","n":"%s","e":"%s"}]}`, kid, n, e)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, key, kid
}

// signToken 用测试私钥签发一个带角色的 token
func signToken(t *testing.T, key *rsa.PrivateKey, kid, issuer string, roles []string, expiresIn time.Duration) string {
	t.Helper()
	claims := &Claims{
		Sub:               "usr-001",
		PreferredUsername: "somchai",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	claims.RealmAccess.Roles = roles

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

// TestValidateToken 测试完整的 JWKS 验签流程
func TestValidateToken(t *testing.T) {
	srv, key, kid := newTestIssuer(t)
	validator := NewTokenValidator(srv.URL)

	tokenString := signToken(t, key, kid, srv.URL, []string{RoleAdvisor}, time.Hour)
	claims, err := validator.ValidateToken(tokenString)
	require.NoError(t, err)

	assert.Equal(t, "usr-001", claims.Sub)
	assert.Equal(t, "somchai", claims.PreferredUsername)
	assert.True(t, claims.HasRole(RoleAdvisor))
	assert.False(t, claims.HasRole(RoleAdmin))
}

// TestValidateToken_Expired 测试过期 token 被拒绝
func TestValidateToken_Expired(t *testing.T) {
	srv, key, kid := newTestIssuer(t)
	validator := NewTokenValidator(srv.URL)

	tokenString := signToken(t, key, kid, srv.URL, nil, -time.Hour)
	_, err := validator.ValidateToken(tokenString)
	require.Error(t, err)
}

// TestValidateToken_WrongIssuer 测试 issuer 不匹配被拒绝
func TestValidateToken_WrongIssuer(t *testing.T) {
	srv, key, kid := newTestIssuer(t)
	validator := NewTokenValidator(srv.URL)

	tokenString := signToken(t, key, kid, "https://other-issuer", nil, time.Hour)
	_, err := validator.ValidateToken(tokenString)
	require.Error(t, err)
}

// TestValidateToken_WrongKey 测试非法签名被拒绝
func TestValidateToken_WrongKey(t *testing.T) {
	srv, _, kid := newTestIssuer(t)
	validator := NewTokenValidator(srv.URL)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokenString := signToken(t, otherKey, kid, srv.URL, nil, time.Hour)
	_, err = validator.ValidateToken(tokenString)
	require.Error(t, err)
}

// TestAuthMiddleware 测试认证中间件写入上下文
func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, key, kid := newTestIssuer(t)
	validator := NewTokenValidator(srv.URL)

	router := gin.New()
	router.Use(AuthMiddleware(validator))
	router.GET("/me", func(c *gin.Context) {
		// 服务层从请求 context 取操作者,两边必须一致
		ctxUserID, _ := c.Request.Context().Value("user_id").(string)
		assert.Equal(t, c.GetString("user_id"), ctxUserID)
		c.JSON(http.StatusOK, gin.H{"user_id": ctxUserID})
	})

	// 无 token
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 合法 token
	tokenString := signToken(t, key, kid, srv.URL, []string{RoleCommittee}, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usr-001")
}

// TestRequireRoles 测试角色校验中间件
func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := func(roles []string) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("roles", roles)
		})
		router.POST("/admin-op", RequireRoles(RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	// 有 admin 角色
	w := httptest.NewRecorder()
	handler([]string{RoleCommittee, RoleAdmin}).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin-op", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 无 admin 角色
	w = httptest.NewRecorder()
	handler([]string{RoleStudent}).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin-op", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
