package handler

import (
	"github.com/gin-gonic/gin"

	"sudooom.grimoire/internal/auth"
	"sudooom.grimoire/internal/middleware"
	"sudooom.grimoire/pkg/response"
)

// AuthHandler 访客身份处理器
type AuthHandler struct {
	jwtService *auth.Service
}

// NewAuthHandler 创建访客身份处理器
func NewAuthHandler(jwtService *auth.Service) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

// GuestRequest 访客登录请求
type GuestRequest struct {
	DisplayName string `json:"displayName"`
}

// Guest 签发访客令牌
// 请求携带有效令牌时沿用原用户ID，只更新昵称
func (h *AuthHandler) Guest(c *gin.Context) {
	var req GuestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
			return
		}
	}

	if raw := middleware.TokenFromRequest(c); raw != "" {
		if claims, err := h.jwtService.Validate(raw); err == nil {
			tok, err := h.jwtService.Issue(claims.UserID, req.DisplayName)
			if err != nil {
				response.Error(c, response.CodeServerError)
				return
			}
			response.Success(c, tok)
			return
		}
	}

	tok, err := h.jwtService.IssueGuest(req.DisplayName)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, tok)
}
