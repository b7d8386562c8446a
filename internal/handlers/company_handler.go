package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/models"
	"salespipeline/internal/services"
)

type CompanyHandler struct {
	Service *services.CompanyService
}

func NewCompanyHandler(service *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{Service: service}
}

// @Summary      Create company
// @Tags         Companies
// @Accept       json
// @Produce      json
// @Param        company  body      models.CompanyProfile  true  "Company profile"
// @Success      201      {object}  models.Company
// @Failure      400      {object}  ErrorResponse
// @Router       /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var profile models.CompanyProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, err.Error())
		return
	}
	company, err := h.Service.Create(c.Request.Context(), principalFrom(c), profile)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	company, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	companies, err := h.Service.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": companies})
}
