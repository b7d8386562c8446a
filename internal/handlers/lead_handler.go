package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/models"
	"salespipeline/internal/services"
)

type LeadHandler struct {
	Service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{Service: service}
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ConvertLeadRequest struct {
	OpportunityDate models.Date `json:"opportunity_date" swaggertype:"string" example:"2026-05-04"`
}

type ConvertLeadResponse struct {
	Lead        *models.Lead            `json:"lead"`
	Opportunity *models.OpportunityView `json:"opportunity"`
}

// @Summary      Create lead
// @Description  Stores a Pending lead and scores its company profile
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        lead  body      services.CreateLeadInput  true  "Lead"
// @Success      201   {object}  models.Lead
// @Failure      400   {object}  ErrorResponse
// @Router       /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var in services.CreateLeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	lead, err := h.Service.Create(c.Request.Context(), principalFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *LeadHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lead, err := h.Service.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *LeadHandler) List(c *gin.Context) {
	var f models.LeadFilter
	if status := c.Query("status"); status != "" {
		f.ApprovalStatus = models.LeadApprovalStatus(status)
	}
	if raw := c.Query("converted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid converted flag")
			return
		}
		f.Converted = &v
	}
	limit, offset := pagination(c)
	leads, err := h.Service.List(c.Request.Context(), principalFrom(c), f, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": leads})
}

// @Summary      Change lead approval status
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        id       path      int                      true  "Lead ID"
// @Param        request  body      UpdateLeadStatusRequest  true  "Pending, Approved or Rejected"
// @Success      200      {object}  models.Lead
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /leads/{id}/status [post]
// @Router       /leads/{id}/status [patch]
func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	lead, err := h.Service.UpdateStatus(c.Request.Context(), principalFrom(c), id, models.LeadApprovalStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// @Summary      Convert lead to opportunity
// @Description  Creates an L1 opportunity from an Approved lead exactly once
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true   "Lead ID"
// @Param        request  body      ConvertLeadRequest  false  "Opportunity date"
// @Success      201      {object}  ConvertLeadResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /leads/{id}/convert [post]
func (h *LeadHandler) Convert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ConvertLeadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	lead, opp, err := h.Service.Convert(c.Request.Context(), principalFrom(c), id, req.OpportunityDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ConvertLeadResponse{Lead: lead, Opportunity: opp})
}
