package routes

import (
	"payment-service/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController) {
	payments := r.Group("/payments")
	payments.POST("/orders/:id/process", pc.ProcessPayment)
	payments.GET("/requests/pending", pc.ListPendingRequests)
	payments.GET("/requests/:id", pc.GetPaymentRequest)
}
