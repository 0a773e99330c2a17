package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitchey/ndagate/internal/services"
	"github.com/pitchey/ndagate/internal/watermark"
	appErrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/response"
)

// NDAHandler exposes the lifecycle engine over HTTP. The actor always comes from the
// authenticated token, never from the body.
type NDAHandler struct {
	engine *services.Engine
}

// NewNDAHandler constructs an NDA handler.
func NewNDAHandler(engine *services.Engine) (*NDAHandler, error) {
	if engine == nil {
		return nil, errors.New("nda handler: engine is required")
	}
	return &NDAHandler{engine: engine}, nil
}

type requestAccessPayload struct {
	ProtectedItemID string `json:"protected_item_id"`
	NDAType         string `json:"nda_type"`
	RequestedAccess string `json:"requested_access"`
	Message         string `json:"message"`
	CustomTerms     string `json:"custom_terms"`
	ExpirationDays  int    `json:"expiration_days"`
}

type watermarkPayload struct {
	Text             string  `json:"text"`
	Opacity          float64 `json:"opacity"`
	Position         string  `json:"position"`
	IncludeTimestamp *bool   `json:"include_timestamp"`
	IncludeUserID    *bool   `json:"include_user_id"`
}

type approvePayload struct {
	AccessLevel      string            `json:"access_level"`
	CustomTerms      string            `json:"custom_terms"`
	WatermarkEnabled bool              `json:"watermark_enabled"`
	Watermark        *watermarkPayload `json:"watermark"`
	DownloadEnabled  bool              `json:"download_enabled"`
	ExpiresAt        *time.Time        `json:"expires_at"`
}

type rejectPayload struct {
	Reason             string `json:"reason"`
	SuggestAlternative bool   `json:"suggest_alternative"`
}

type signPayload struct {
	Signature   string `json:"signature"`
	FullName    string `json:"full_name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	AcceptTerms bool   `json:"accept_terms"`
}

type revokePayload struct {
	Reason string `json:"reason"`
}

// Request handles POST /api/ndas/request.
func (h *NDAHandler) Request(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var payload requestAccessPayload
	if !bindJSON(c, &payload) {
		return
	}

	request, err := h.engine.Requests.RequestAccess(requestContext(c), services.RequestAccessInput{
		RequesterID:     actorID,
		ProtectedItemID: payload.ProtectedItemID,
		NDAType:         payload.NDAType,
		RequestedAccess: payload.RequestedAccess,
		Message:         payload.Message,
		CustomTerms:     payload.CustomTerms,
		ExpirationDays:  payload.ExpirationDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, request)
}

// Approve handles POST /api/ndas/:id/approve where :id is the request.
func (h *NDAHandler) Approve(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var payload approvePayload
	if !bindJSON(c, &payload) {
		return
	}

	input := services.ApproveInput{
		OwnerID:          actorID,
		RequestID:        strings.TrimSpace(c.Param("id")),
		AccessLevel:      payload.AccessLevel,
		CustomTerms:      payload.CustomTerms,
		WatermarkEnabled: payload.WatermarkEnabled,
		DownloadEnabled:  payload.DownloadEnabled,
		ExpiresAt:        payload.ExpiresAt,
	}
	if wm := payload.Watermark; wm != nil {
		input.Watermark = watermark.Options{
			Text:             wm.Text,
			Opacity:          wm.Opacity,
			Position:         wm.Position,
			IncludeTimestamp: wm.IncludeTimestamp,
			IncludeUserID:    wm.IncludeUserID,
		}
	}

	nda, err := h.engine.Approvals.Approve(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, nda)
}

// Reject handles POST /api/ndas/:id/reject where :id is the request.
func (h *NDAHandler) Reject(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var payload rejectPayload
	if !bindJSON(c, &payload) {
		return
	}

	request, err := h.engine.Approvals.Reject(requestContext(c), services.RejectInput{
		OwnerID:            actorID,
		RequestID:          strings.TrimSpace(c.Param("id")),
		Reason:             payload.Reason,
		SuggestAlternative: payload.SuggestAlternative,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, request)
}

// Sign handles POST /api/ndas/:id/sign where :id is the NDA.
func (h *NDAHandler) Sign(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var payload signPayload
	if !bindJSON(c, &payload) {
		return
	}

	nda, err := h.engine.Signatures.Sign(requestContext(c), services.SignInput{
		SignerID:         actorID,
		NDAID:            strings.TrimSpace(c.Param("id")),
		SignaturePayload: payload.Signature,
		FullName:         payload.FullName,
		Title:            payload.Title,
		Company:          payload.Company,
		IPAddress:        c.ClientIP(),
		AcceptTerms:      payload.AcceptTerms,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nda)
}

// Revoke handles POST /api/ndas/:id/revoke where :id is the NDA.
func (h *NDAHandler) Revoke(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var payload revokePayload
	if !bindJSON(c, &payload) {
		return
	}

	nda, err := h.engine.Revocations.Revoke(requestContext(c), services.RevokeInput{
		OwnerID: actorID,
		NDAID:   strings.TrimSpace(c.Param("id")),
		Reason:  payload.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nda)
}

// Status handles GET /api/ndas/pitch/:itemId/status.
func (h *NDAHandler) Status(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	status, err := h.engine.Status(requestContext(c), actorID, strings.TrimSpace(c.Param("itemId")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// Audit handles GET /api/ndas/:id/audit. The id may name an NDA or a request that never
// produced one.
func (h *NDAHandler) Audit(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	ctx := requestContext(c)

	entries, err := h.engine.Audit.ListForNDA(ctx, actorID, id)
	if errors.Is(err, appErrors.ErrNotFoundOrUnauthorized) {
		entries, err = h.engine.Audit.ListForRequest(ctx, actorID, id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"enabled": h.engine.Audit.Enabled(),
		"entries": entries,
	})
}

// Incoming handles GET /api/ndas/incoming: requests addressed to the caller as owner.
func (h *NDAHandler) Incoming(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	requests, err := h.engine.Requests.ListIncoming(requestContext(c), actorID, strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, requests)
}

// Outgoing handles GET /api/ndas/outgoing: requests the caller has made.
func (h *NDAHandler) Outgoing(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	requests, err := h.engine.Requests.ListOutgoing(requestContext(c), actorID, strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, requests)
}
