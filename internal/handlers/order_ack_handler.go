package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/services"
)

type OrderAckHandler struct {
	Service *services.OrderAckService
}

func NewOrderAckHandler(service *services.OrderAckService) *OrderAckHandler {
	return &OrderAckHandler{Service: service}
}

func (h *OrderAckHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	oa, _, err := h.Service.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, oa)
}

// @Summary      Order acknowledgement PDF
// @Tags         OrderAcknowledgements
// @Produce      application/pdf
// @Param        id   path  int  true  "Order acknowledgement ID"
// @Success      200  {file}  file
// @Failure      404  {object}  ErrorResponse
// @Router       /order-acknowledgements/{id}/pdf [get]
func (h *OrderAckHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, oa, err := h.Service.PDF(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, oa.DisplayID))
	c.Data(http.StatusOK, "application/pdf", doc)
}
