package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"salespipeline/internal/authz"
	"salespipeline/internal/handlers"
	"salespipeline/internal/metrics"
	"salespipeline/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	opportunityHandler *handlers.OpportunityHandler,
	leadHandler *handlers.LeadHandler,
	companyHandler *handlers.CompanyHandler,
	orderAckHandler *handlers.OrderAckHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", handlers.Health)
	r.GET("/metrics", metrics.Handler())
	r.GET("/stages", handlers.ListStages)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ---- protected; a group so that unknown paths still get 404
	api := r.Group("", middleware.AuthMiddleware(jwtSecret), middleware.ReadOnlyGuard())

	// OPPORTUNITIES
	opps := api.Group("/opportunities")
	{
		opps.POST("", opportunityHandler.Create)
		opps.GET("", opportunityHandler.List)
		opps.GET("/kpis", opportunityHandler.KPIs)
		opps.GET("/:id", opportunityHandler.GetByID)
		opps.PUT("/:id", opportunityHandler.Update)
		opps.POST("/:id/change-stage", opportunityHandler.ChangeStage)
		opps.PATCH("/:id/stage", opportunityHandler.ChangeStage)
		opps.PUT("/:id/stages/:stage", opportunityHandler.UpdateStageData)
		opps.POST("/:id/close", opportunityHandler.Close)
		opps.GET("/:id/history", opportunityHandler.History)
		opps.GET("/:id/can-create-oa", opportunityHandler.CanCreateOrderAck)
		opps.GET("/:id/can-create-order-ack", opportunityHandler.CanCreateOrderAck)
		opps.POST("/:id/quotations", opportunityHandler.CreateQuotation)
		opps.GET("/:id/quotations", opportunityHandler.ListQuotations)
		opps.POST("/:id/order-acknowledgements", opportunityHandler.CreateOrderAck)
		opps.GET("/:id/order-acknowledgements", opportunityHandler.ListOrderAcks)
	}

	// LEADS
	leads := api.Group("/leads")
	{
		leads.POST("", leadHandler.Create)
		leads.GET("", leadHandler.List)
		leads.GET("/:id", leadHandler.GetByID)
		leads.POST("/:id/status", leadHandler.UpdateStatus)
		leads.PATCH("/:id/status", leadHandler.UpdateStatus)
		leads.POST("/:id/convert", leadHandler.Convert)
	}

	// COMPANIES
	companies := api.Group("/companies")
	{
		companies.POST("", companyHandler.Create)
		companies.GET("", companyHandler.List)
		companies.GET("/:id", companyHandler.GetByID)
	}

	// ORDER ACKNOWLEDGEMENTS
	acks := api.Group("/order-acknowledgements")
	{
		acks.GET("/:id", orderAckHandler.GetByID)
		acks.GET("/:id/pdf", orderAckHandler.PDF)
	}

	// unknown roles get 403
	api.GET("/me", middleware.RequireRoles(authz.RoleSales, authz.RoleOperations, authz.RoleAudit, authz.RoleManagement, authz.RoleAdmin), handlers.Me)

	return r
}
