package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/push"
	"github.com/tbourn/go-bloodlink-backend/internal/utils"
)

// RespondRequest is a donor's answer to a notification.
type RespondRequest struct {
	DonorID string `json:"donor_id" example:"5b0c2f1e-7a0d-4a43-9d8e-2f4b3c1d9e10"`
	Status  string `json:"status" example:"accepted" enums:"pending,accepted,declined"`
	Message string `json:"message,omitempty" example:"on my way"`
}

// NotificationActionRequest is the callback of a push alert button.
type NotificationActionRequest struct {
	RequestID string `json:"request_id"`
	DonorID   string `json:"donor_id"`
	Action    string `json:"action" example:"accept" enums:"accept,decline,view"`
}

// ListResponsesResponse is a page of donor responses.
type ListResponsesResponse struct {
	Responses  []domain.DonorResponse `json:"responses"`
	Pagination Pagination             `json:"pagination"`
}

// ListResponses godoc
// @ID          listResponses
// @Summary     List donor responses (paginated)
// @Description Returns the notification records of a request. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Responses
// @Produce     json
// @Param       id             path    string  true   "Request ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListResponsesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Router      /requests/{id}/responses [get]
func (h *Handlers) ListResponses(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.Param("id")
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if h.stats != nil {
		count, maxTS, err := h.stats(ctx, requestID)
		if err == nil && count > 0 {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"responses:%s:%d:%d:%d:%d"`, requestID, count, ts, p.Number, p.Size)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.responses.ListPage(ctx, requestID, p.Number, p.Size)
	if err != nil {
		failService(c, err)
		return
	}
	totalPages := utils.TotalPages(total, p.Size)
	ok(c, http.StatusOK, ListResponsesResponse{
		Responses: items,
		Pagination: Pagination{
			Page:       p.Number,
			PageSize:   p.Size,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Number < totalPages,
		},
	})
}

// Respond godoc
// @ID          respond
// @Summary     Record a donor response
// @Description Accepting fulfils the request when it is still open. Only one donor can win; later acceptances get 409 request_closed.
// @Tags        Responses
// @Accept      json
// @Produce     json
// @Param       id               path    string  true   "Request ID"  format(uuid)
// @Param       Idempotency-Key  header  string  false  "Replay-safe retries"
// @Param       body             body    handlers.RespondRequest  true  "Response"
// @Success     200  {object} services.RespondResult
// @Failure     400  {object} handlers.ErrorResponse "Unknown status"
// @Failure     404  {object} handlers.ErrorResponse "Request or donor not found"
// @Failure     409  {object} handlers.ErrorResponse "Request closed or invalid transition"
// @Router      /requests/{id}/responses [post]
func (h *Handlers) Respond(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	donorID := req.DonorID
	if donorID == "" {
		donorID = actor(c)
	}
	if donorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "donor_id required")
		return
	}
	res, err := h.responses.Respond(c.Request.Context(), c.Param("id"), donorID, req.Status, req.Message)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// NotificationAction godoc
// @ID          notificationAction
// @Summary     Handle a push alert action
// @Description accept and decline are recorded as responses; view only opens the app and returns 204.
// @Tags        Responses
// @Accept      json
// @Produce     json
// @Param       body  body    handlers.NotificationActionRequest  true  "Action"
// @Success     200  {object} services.RespondResult
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Unknown action"
// @Failure     409  {object} handlers.ErrorResponse "Request closed"
// @Router      /notifications/actions [post]
func (h *Handlers) NotificationAction(c *gin.Context) {
	var req NotificationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	act, valid := push.ParseAction(req.Action)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action must be accept, decline or view")
		return
	}
	if req.RequestID == "" || req.DonorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request_id and donor_id required")
		return
	}
	status, records := act.ResponseStatus()
	if !records {
		noContent(c)
		return
	}
	res, err := h.responses.Respond(c.Request.Context(), req.RequestID, req.DonorID, string(status), "")
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
