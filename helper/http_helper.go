package helper

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"gopkg.in/go-playground/validator.v9"
	en_translations "gopkg.in/go-playground/validator.v9/translations/en"

	"edition-publisher/models"
)

const (
	textError = `error`
	textOk    = `ok`

	codeSuccess           = http.StatusOK
	codeCreated           = http.StatusCreated
	codeBadRequestError   = http.StatusBadRequest
	codeUnauthorizedError = http.StatusUnauthorized
	codeForbiddenError    = http.StatusForbidden
	codeNotFound          = http.StatusNotFound
	codeConflict          = http.StatusConflict
	codeValidationError   = http.StatusUnprocessableEntity
	codeLocked            = http.StatusLocked
	codeInternalError     = http.StatusInternalServerError
)

// ResponseHelper ...
type ResponseHelper struct {
	C        *gin.Context
	Status   string
	Message  string
	Data     interface{}
	Code     int
	CodeType string
}

// HTTPHelper ...
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewHTTPHelper returns a helper with an english validation translator.
func NewHTTPHelper() *HTTPHelper {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	return &HTTPHelper{Validate: validate, Translator: trans}
}

// GetStatusCode ...
func (u *HTTPHelper) GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		validation *models.ErrorValidation
		guard      *models.ErrorGuardViolation
		conflict   *models.ErrorConflict
		notFound   *models.ErrorNotFound
		archived   *models.ErrorArchivedDocument
		unauth     *models.ErrorUnauthorized
		forbidden  *models.ErrorForbidden
	)
	switch {
	case errors.As(err, &validation):
		return codeValidationError
	case errors.As(err, &guard), errors.As(err, &conflict):
		return codeConflict
	case errors.As(err, &notFound):
		return codeNotFound
	case errors.As(err, &archived):
		return codeLocked
	case errors.As(err, &unauth):
		return codeUnauthorizedError
	case errors.As(err, &forbidden):
		return codeForbiddenError
	default:
		return codeInternalError
	}
}

func codeTypeFor(status int) string {
	switch status {
	case codeValidationError:
		return `validationError`
	case codeConflict:
		return `conflict`
	case codeNotFound:
		return `notFound`
	case codeLocked:
		return `archivedDocument`
	case codeUnauthorizedError:
		return `unAuthorized`
	case codeForbiddenError:
		return `forbidden`
	default:
		return `internalError`
	}
}

// SetResponse ...
// Set response data.
func (u *HTTPHelper) SetResponse(c *gin.Context, status string, message string, data interface{}, code int, codeType string) ResponseHelper {
	return ResponseHelper{c, status, message, data, code, codeType}
}

// SendError ...
// Send error response to consumers.
func (u *HTTPHelper) SendError(c *gin.Context, message string, data interface{}, code int, codeType string) error {
	res := u.SetResponse(c, textError, message, data, code, codeType)

	return u.SendResponse(res)
}

// SendServiceError ...
// Send a domain error with its mapped status. Validation errors carry their field
// reasons in data; internal errors hide the cause.
func (u *HTTPHelper) SendServiceError(c *gin.Context, err error) error {
	status := u.GetStatusCode(err)
	_ = c.Error(err)

	var data interface{} = u.EmptyJsonMap()
	message := err.Error()

	var validation *models.ErrorValidation
	if errors.As(err, &validation) {
		message = "validation failed"
		data = validation.Fields
	}
	if status == codeInternalError {
		message = "internal server error"
	}

	return u.SendError(c, message, data, status, codeTypeFor(status))
}

// SendBadRequest ...
// Send bad request response to consumers.
func (u *HTTPHelper) SendBadRequest(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textError, message, data, codeBadRequestError, `badRequest`)

	return u.SendResponse(res)
}

// SendValidationError ...
// Send validation error response to consumers.
func (u *HTTPHelper) SendValidationError(c *gin.Context, validationErrors validator.ValidationErrors) error {
	errorResponse := map[string][]string{}
	errorTranslation := validationErrors.Translate(u.Translator)
	for _, err := range validationErrors {
		errKey := Underscore(err.StructField())
		errorResponse[errKey] = append(errorResponse[errKey], errorTranslation[err.Namespace()])
	}

	return u.SendError(c, "validation failed", errorResponse, codeValidationError, `validationError`)
}

// BindJSON decodes the request body into req and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (u *HTTPHelper) BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		u.SendBadRequest(c, "invalid request body: "+err.Error(), u.EmptyJsonMap())
		return false
	}
	if u.Validate == nil {
		return true
	}
	if err := u.Validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			u.SendValidationError(c, verrs)
			return false
		}
		u.SendBadRequest(c, err.Error(), u.EmptyJsonMap())
		return false
	}
	return true
}

// SendUnauthorizedError ...
// Send unauthorized response to consumers.
func (u *HTTPHelper) SendUnauthorizedError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeUnauthorizedError, `unAuthorized`)
}

// SendForbiddenError ...
func (u *HTTPHelper) SendForbiddenError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeForbiddenError, `forbidden`)
}

// SendNotFoundError ...
// Send not found response to consumers.
func (u *HTTPHelper) SendNotFoundError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeNotFound, `notFound`)
}

// SendSuccess ...
// Send success response to consumers.
func (u *HTTPHelper) SendSuccess(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, codeSuccess, `success`)

	return u.SendResponse(res)
}

// SendCreated ...
func (u *HTTPHelper) SendCreated(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, codeCreated, `created`)

	return u.SendResponse(res)
}

// SendResponse ...
// Send response. Code doubles as the HTTP status.
func (u *HTTPHelper) SendResponse(res ResponseHelper) error {
	if len(res.Message) == 0 {
		res.Message = `success`
	}

	resCode := res.Code
	if resCode < 100 || resCode > 599 {
		resCode = http.StatusBadRequest
	}

	res.C.JSON(resCode, map[string]interface{}{
		"code":         res.Code,
		"code_type":    res.CodeType,
		"code_message": res.Message,
		"data":         res.Data,
	})
	return nil
}

func (u *HTTPHelper) EmptyJsonMap() map[string]interface{} {
	return make(map[string]interface{})
}

// get pagination URL
func (u *HTTPHelper) GetPagingUrl(c *gin.Context, page, limit int) string {
	r := c.Request
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	currentURL := scheme + "://" + r.Host + r.URL.Path + "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	return currentURL
}

// Set paginantion response
func (u *HTTPHelper) GeneratePaging(c *gin.Context, limit, page, totalRecord int) map[string]interface{} {
	prevURL, nextURL, firstURL, lastURL := "", "", "", ""

	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(totalRecord) / float64(limit)))
	}

	if totalPages >= page && page > 1 {
		prevURL = u.GetPagingUrl(c, page-1, limit)
		firstURL = u.GetPagingUrl(c, 1, limit)
	}

	if totalPages > page {
		nextURL = u.GetPagingUrl(c, page+1, limit)
	}

	if totalPages >= page && totalPages != page {
		lastURL = u.GetPagingUrl(c, totalPages, limit)
	}

	links := map[string]interface{}{
		"previous": prevURL,
		"next":     nextURL,
		"first":    firstURL,
		"last":     lastURL,
	}

	return map[string]interface{}{
		"total_records": totalRecord,
		"per_page":      limit,
		"current_page":  page,
		"total_pages":   totalPages,
		"links":         links,
	}
}
