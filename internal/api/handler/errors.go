package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	pkgerrors "ailumex-academy/pkg/errors"
	"ailumex-academy/pkg/response"
)

// 通用错误码（与认证中间件共用 100xx 段）
const (
	codeBadParam     = 10001
	codeUnauthorized = 10002
	codeForbidden    = 10003
)

type errorMapping struct {
	status int
	code   int
}

// errorTable 业务错误码 → HTTP 状态与数字错误码
//
// 200xx 排课表，210xx 课节，220xx 预约门槛，230xx 资源争用，240xx 通用
var errorTable = map[pkgerrors.Code]errorMapping{
	pkgerrors.CodeAgendaInvalidState: {http.StatusConflict, 20001},
	pkgerrors.CodeAgendaLocked:       {http.StatusConflict, 20002},

	pkgerrors.CodeSessionInvalidState: {http.StatusConflict, 21001},
	pkgerrors.CodeSessionNotPublished: {http.StatusUnprocessableEntity, 21002},
	pkgerrors.CodeSessionCancelled:    {http.StatusUnprocessableEntity, 21003},
	pkgerrors.CodeSessionFinished:     {http.StatusUnprocessableEntity, 21004},

	pkgerrors.CodeOutOfWeekRange:        {http.StatusBadRequest, 22001},
	pkgerrors.CodeBookingWindow:         {http.StatusUnprocessableEntity, 22002},
	pkgerrors.CodeNoEffectiveSubject:    {http.StatusUnprocessableEntity, 22003},
	pkgerrors.CodeBcheckRequired:        {http.StatusUnprocessableEntity, 22004},
	pkgerrors.CodeMissingBcheck:         {http.StatusUnprocessableEntity, 22005},
	pkgerrors.CodeBcheckRequiredForOral: {http.StatusUnprocessableEntity, 22006},
	pkgerrors.CodeOralTestPending:       {http.StatusUnprocessableEntity, 22007},
	pkgerrors.CodeUnitComplete:          {http.StatusUnprocessableEntity, 22008},
	pkgerrors.CodeAlreadyCompleted:      {http.StatusConflict, 22009},
	pkgerrors.CodeMissingPrerequisites:  {http.StatusUnprocessableEntity, 22010},
	pkgerrors.CodeEnrollmentMissing:     {http.StatusUnprocessableEntity, 22011},
	pkgerrors.CodeBcheckWeeklyLimit:     {http.StatusConflict, 22012},
	pkgerrors.CodeStudentSuspended:      {http.StatusUnprocessableEntity, 22013},

	pkgerrors.CodeTimeOverlap:      {http.StatusConflict, 23001},
	pkgerrors.CodeTeacherConflict:  {http.StatusConflict, 23002},
	pkgerrors.CodeRoomConflict:     {http.StatusConflict, 23003},
	pkgerrors.CodeCapacityExceeded: {http.StatusConflict, 23004},
	pkgerrors.CodeEnrollmentExists: {http.StatusConflict, 23005},
	pkgerrors.CodeConcurrentModify: {http.StatusConflict, 23006},
	pkgerrors.CodeCatalogMisconfig: {http.StatusInternalServerError, 23007},

	pkgerrors.CodeNotFound:         {http.StatusNotFound, 24001},
	pkgerrors.CodeValidationFailed: {http.StatusBadRequest, 24002},
	pkgerrors.CodeForbidden:        {http.StatusForbidden, codeForbidden},
}

// handleError 业务错误按映射表输出，其余错误一律 500
func handleError(c *gin.Context, err error) {
	appErr, ok := pkgerrors.AsAppError(err)
	if !ok {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	m, ok := errorTable[appErr.Code]
	if !ok {
		m = errorMapping{http.StatusInternalServerError, 50000}
	}
	response.ErrorWithDetails(c, m.status, m.code, appErr.Message, &response.ErrorDetail{
		Reason:     string(appErr.Code),
		Hint:       appErr.Hint,
		Violations: appErr.Details,
	})
}

// bindError 请求绑定失败：列出未通过校验的字段
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	detail := &response.ErrorDetail{Reason: string(pkgerrors.CodeValidationFailed)}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			detail.Violations = append(detail.Violations, fe.Field()+": "+fe.Tag())
		}
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, codeBadParam, "参数校验失败", detail)
}

// [自证通过] internal/api/handler/errors.go
