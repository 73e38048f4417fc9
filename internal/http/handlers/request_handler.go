package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

// CreateRequestRequest is the JSON payload for posting a blood request.
type CreateRequestRequest struct {
	// RequesterID defaults to the X-Actor-ID header.
	RequesterID  string  `json:"requester_id,omitempty" example:"hospital-1"`
	FacilityName string  `json:"facility_name" example:"St. Mary"`
	BloodType    string  `json:"blood_type" example:"A+"`
	Urgency      string  `json:"urgency" example:"urgent" enums:"critical,urgent,normal,low"`
	UnitsNeeded  int     `json:"units_needed" example:"2"`
	Latitude     float64 `json:"latitude" example:"40.7128"`
	Longitude    float64 `json:"longitude" example:"-74.006"`
	// SearchRadiusKm overrides every donor's own radius.
	SearchRadiusKm *float64   `json:"search_radius_km,omitempty" example:"30"`
	Notes          string     `json:"notes,omitempty"`
	NeededBy       *time.Time `json:"needed_by,omitempty"`
}

// DispatchRequest selects the donors to notify.
type DispatchRequest struct {
	DonorIDs []string `json:"donor_ids"`
}

// CreateRequest godoc
// @ID          createRequest
// @Summary     Post a blood request
// @Description Stores a pending request and announces it to subscribed donors of the same blood type.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID       header    string  false  "Caller id, used as requester_id when the body omits it"
// @Param       Idempotency-Key  header    string  false  "Replay-safe retries"
// @Param       body             body      handlers.CreateRequestRequest  true  "Request"
// @Success     201  {object}  domain.BloodRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	requester := req.RequesterID
	if requester == "" {
		requester = actor(c)
	}
	br, err := h.requests.Create(c.Request.Context(), services.CreateRequestInput{
		RequesterID:    requester,
		FacilityName:   req.FacilityName,
		BloodType:      req.BloodType,
		Urgency:        req.Urgency,
		UnitsNeeded:    req.UnitsNeeded,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		SearchRadiusKm: req.SearchRadiusKm,
		Notes:          req.Notes,
		NeededBy:       req.NeededBy,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, br)
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Get a blood request
// @Tags        Requests
// @Produce     json
// @Param       id   path      string  true  "Request ID"  format(uuid)
// @Success     200  {object}  domain.BloodRequest
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	br, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, br)
}

// CancelRequest godoc
// @ID          cancelRequest
// @Summary     Cancel a blood request
// @Description Closes an open request. Donors still awaiting an answer are marked cancelled.
// @Tags        Requests
// @Produce     json
// @Param       id   path      string  true  "Request ID"  format(uuid)
// @Success     200  {object}  domain.BloodRequest
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request already closed"
// @Router      /requests/{id}/cancel [post]
func (h *Handlers) CancelRequest(c *gin.Context) {
	br, err := h.requests.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, br)
}

// FindMatches godoc
// @ID          findMatches
// @Summary     Rank candidate donors
// @Description Returns compatible donors within radius, best first: score, then distance, then donor id.
// @Tags        Matching
// @Produce     json
// @Param       id                  path      string  true   "Request ID"  format(uuid)
// @Param       include_ineligible  query     bool    false  "Keep ineligible donors with their reasons"
// @Param       limit               query     int     false  "Maximum candidates"  minimum(1)
// @Success     200  {array}   domain.MatchCandidate
// @Failure     400  {object}  handlers.ErrorResponse  "Bad query"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Router      /requests/{id}/matches [get]
func (h *Handlers) FindMatches(c *gin.Context) {
	opts := services.MatchOptions{}
	if v := c.Query("include_ineligible"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "include_ineligible must be a boolean")
			return
		}
		opts.IncludeIneligible = b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}

	cands, err := h.matcher.FindCandidates(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		failService(c, err)
		return
	}
	if cands == nil {
		cands = []domain.MatchCandidate{}
	}
	ok(c, http.StatusOK, cands)
}

// DispatchNotifications godoc
// @ID          dispatchNotifications
// @Summary     Notify selected donors
// @Description Creates or refreshes one notification per donor. Individual failures are listed; only a batch with zero notifications fails.
// @Tags        Matching
// @Accept      json
// @Produce     json
// @Param       id               path      string  true   "Request ID"  format(uuid)
// @Param       Idempotency-Key  header    string  false  "Replay-safe retries"
// @Param       body             body      handlers.DispatchRequest  true  "Donor selection"
// @Success     200  {object}  services.DispatchResult
// @Failure     400  {object}  handlers.ErrorResponse  "No donors selected"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request closed"
// @Failure     500  {object}  handlers.ErrorResponse  "No notification could be created"
// @Router      /requests/{id}/dispatch [post]
func (h *Handlers) DispatchNotifications(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.dispatch.Dispatch(c.Request.Context(), c.Param("id"), req.DonorIDs)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
