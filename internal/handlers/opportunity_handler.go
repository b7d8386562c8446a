package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/models"
	"salespipeline/internal/services"
)

type OpportunityHandler struct {
	Service    *services.OpportunityService
	Quotations *services.QuotationService
	OrderAcks  *services.OrderAckService
}

func NewOpportunityHandler(service *services.OpportunityService, quotations *services.QuotationService, acks *services.OrderAckService) *OpportunityHandler {
	return &OpportunityHandler{Service: service, Quotations: quotations, OrderAcks: acks}
}

// StageRef is a stage given either as its order (3) or its code ("L3").
type StageRef int

func (s *StageRef) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = StageRef(n)
		return nil
	}
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		return errors.New("stage must be a number or a code like L3")
	}
	order, ok := parseStage(code)
	if !ok {
		return errors.New("unknown stage " + code)
	}
	*s = StageRef(order)
	return nil
}

type ChangeStageRequest struct {
	TargetStage StageRef        `json:"target_stage" swaggertype:"integer"`
	StageData   json.RawMessage `json:"stage_data" swaggertype:"object"`
}

type CloseRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Reason  string `json:"reason"`
}

type HistoryResponse struct {
	Items []models.StageTransition `json:"items"`
}

type ListOpportunitiesResponse struct {
	Items []*models.OpportunityView `json:"items"`
	Total int                       `json:"total"`
}

func parseOpportunityFilter(c *gin.Context) (models.OpportunityFilter, bool) {
	var f models.OpportunityFilter
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		f.Status = models.OpportunityStatus(status)
	}
	if raw := strings.TrimSpace(c.Query("stage")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			order, ok := parseStage(part)
			if !ok {
				badRequest(c, "invalid stage "+part)
				return f, false
			}
			f.Stages = append(f.Stages, order)
		}
	}
	if raw := c.Query("owner_id"); raw != "" {
		owner, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid owner_id")
			return f, false
		}
		f.OwnerID = owner
	}
	return f, true
}

// @Summary      Create opportunity
// @Description  Opens an opportunity directly at L1 with win probability 25 unless given
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        opportunity  body      services.CreateOpportunityInput  true  "Opportunity"
// @Success      201          {object}  models.OpportunityView
// @Failure      400          {object}  ErrorResponse
// @Failure      403          {object}  ErrorResponse
// @Router       /opportunities [post]
func (h *OpportunityHandler) Create(c *gin.Context) {
	var in services.CreateOpportunityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.Service.Create(c.Request.Context(), principalFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// @Summary      List opportunities
// @Tags         Opportunities
// @Produce      json
// @Param        status    query     string  false  "Active, Won, Lost or Dropped"
// @Param        stage     query     string  false  "Comma separated stages, e.g. L2,L3"
// @Param        owner_id  query     int     false  "Owner (elevated roles only)"
// @Param        page      query     int     false  "Page"
// @Param        size      query     int     false  "Page size"
// @Success      200       {object}  ListOpportunitiesResponse
// @Router       /opportunities [get]
func (h *OpportunityHandler) List(c *gin.Context) {
	f, ok := parseOpportunityFilter(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	items, total, err := h.Service.List(c.Request.Context(), principalFrom(c), f, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListOpportunitiesResponse{Items: items, Total: total})
}

// @Summary      Pipeline KPIs
// @Description  Totals over the same filter as the list endpoint
// @Tags         Opportunities
// @Produce      json
// @Success      200  {object}  models.OpportunityKPIs
// @Router       /opportunities/kpis [get]
func (h *OpportunityHandler) KPIs(c *gin.Context) {
	f, ok := parseOpportunityFilter(c)
	if !ok {
		return
	}
	kpis, err := h.Service.KPIs(c.Request.Context(), principalFrom(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

// @Summary      Get opportunity
// @Tags         Opportunities
// @Produce      json
// @Param        id   path      int  true  "Opportunity ID"
// @Success      200  {object}  models.OpportunityView
// @Failure      404  {object}  ErrorResponse
// @Router       /opportunities/{id} [get]
func (h *OpportunityHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.Service.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Update opportunity attributes
// @Description  Terminal opportunities are read-only
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id       path      int                              true  "Opportunity ID"
// @Param        request  body      services.UpdateOpportunityInput  true  "Fields to change"
// @Success      200      {object}  models.OpportunityView
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /opportunities/{id} [put]
func (h *OpportunityHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.UpdateOpportunityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.Service.Update(c.Request.Context(), principalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Request a stage transition
// @Description  Advances by exactly one stage, or saves a draft when target_stage equals the current stage
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Opportunity ID"
// @Param        request  body      ChangeStageRequest  true  "Target stage and its data"
// @Success      200      {object}  models.OpportunityView
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Router       /opportunities/{id}/change-stage [post]
// @Router       /opportunities/{id}/stage [patch]
func (h *OpportunityHandler) ChangeStage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.TargetStage == 0 {
		badRequest(c, "target_stage is required")
		return
	}
	view, err := h.Service.RequestTransition(c.Request.Context(), principalFrom(c), id, int(req.TargetStage), req.StageData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateStageData edits the data of an already visited stage. The body is
// the stage payload itself.
//
// @Summary      Edit data of a visited stage
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id     path      int     true  "Opportunity ID"
// @Param        stage  path      string  true  "Stage order or code, e.g. 3 or L3"
// @Success      200    {object}  models.OpportunityView
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      422    {object}  ErrorResponse
// @Router       /opportunities/{id}/stages/{stage} [put]
func (h *OpportunityHandler) UpdateStageData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, ok := parseStage(c.Param("stage"))
	if !ok {
		badRequest(c, "invalid stage")
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.Service.UpdateStageData(c.Request.Context(), principalFrom(c), id, order, raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Close as lost or dropped
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id       path      int           true  "Opportunity ID"
// @Param        request  body      CloseRequest  true  "Outcome lost|dropped and reason"
// @Success      200      {object}  models.OpportunityView
// @Router       /opportunities/{id}/close [post]
func (h *OpportunityHandler) Close(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.Service.Close(c.Request.Context(), principalFrom(c), id, strings.ToLower(req.Outcome), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Stage transition history
// @Tags         Opportunities
// @Produce      json
// @Param        id   path      int  true  "Opportunity ID"
// @Success      200  {object}  HistoryResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /opportunities/{id}/history [get]
func (h *OpportunityHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.Service.History(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: items})
}

// @Summary      Order acknowledgement eligibility
// @Tags         Opportunities
// @Produce      json
// @Param        id   path      int  true  "Opportunity ID"
// @Success      200  {object}  models.Eligibility
// @Router       /opportunities/{id}/can-create-oa [get]
// @Router       /opportunities/{id}/can-create-order-ack [get]
func (h *OpportunityHandler) CanCreateOrderAck(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Service.Get(c.Request.Context(), principalFrom(c), id); err != nil && !services.IsKind(err, services.KindNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.OrderAcks.CanCreateOrderAcknowledgement(c.Request.Context(), id))
}

// @Summary      Record a quotation
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id       path      int                            true  "Opportunity ID"
// @Param        request  body      services.CreateQuotationInput  true  "Reference and amount"
// @Success      201      {object}  models.Quotation
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /opportunities/{id}/quotations [post]
func (h *OpportunityHandler) CreateQuotation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.CreateQuotationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.Quotations.Create(c.Request.Context(), principalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// @Summary      List quotations of an opportunity
// @Tags         Opportunities
// @Produce      json
// @Param        id   path      int  true  "Opportunity ID"
// @Success      200  {object}  object{items=[]models.Quotation}
// @Failure      404  {object}  ErrorResponse
// @Router       /opportunities/{id}/quotations [get]
func (h *OpportunityHandler) ListQuotations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Service.Get(c.Request.Context(), principalFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	items, err := h.Quotations.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary      Create order acknowledgement
// @Description  Only Won opportunities are eligible; the amount defaults to the PO amount
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true   "Opportunity ID"
// @Param        request  body      services.CreateOrderAckInput  false  "Optional amount"
// @Success      201      {object}  models.OrderAcknowledgement
// @Failure      400      {object}  ErrorResponse
// @Router       /opportunities/{id}/order-acknowledgements [post]
func (h *OpportunityHandler) CreateOrderAck(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.CreateOrderAckInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	oa, err := h.OrderAcks.Create(c.Request.Context(), principalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, oa)
}

// @Summary      List order acknowledgements of an opportunity
// @Tags         Opportunities
// @Produce      json
// @Param        id   path      int  true  "Opportunity ID"
// @Success      200  {object}  object{items=[]models.OrderAcknowledgement}
// @Failure      404  {object}  ErrorResponse
// @Router       /opportunities/{id}/order-acknowledgements [get]
func (h *OpportunityHandler) ListOrderAcks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Service.Get(c.Request.Context(), principalFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	items, err := h.OrderAcks.ListByOpportunity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
