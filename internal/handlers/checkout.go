package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/lifecycle"
	"backend/internal/models"
	"backend/internal/payments"
)

type checkoutRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Address1 string `json:"address1" binding:"required"`
	City     string `json:"city" binding:"required"`
	State    string `json:"state" binding:"required"`
	Zip      string `json:"zip" binding:"required"`
	Notes    string `json:"notes"`
}

// Checkout opens a payment session for a draft order and attaches the
// session id through the lifecycle controller.
func Checkout(db *mongo.Database, creator payments.SessionCreator, ctrl *lifecycle.Controller, siteURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/checkout"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if order.Finalized() {
			c.JSON(http.StatusConflict, gin.H{"error": "order already finalized"})
			return
		}

		var print models.Print
		if err := db.Collection("prints").FindOne(ctx, bson.M{"_id": order.PrintID}).Decode(&print); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		session, err := creator.CreateSession(ctx, payments.SessionRequest{
			OrderID:  orderID.Hex(),
			Print:    print,
			FullName: req.FullName,
			Email:    req.Email,
			Address: models.Address{
				Line1:      req.Address1,
				City:       req.City,
				State:      req.State,
				PostalCode: req.Zip,
				Country:    "US",
			},
			Notes:      req.Notes,
			SuccessURL: fmt.Sprintf("%s/order-success?orderId=%s", siteURL, orderID.Hex()),
			CancelURL:  fmt.Sprintf("%s/checkout?orderId=%s", siteURL, orderID.Hex()),
		})
		if err != nil {
			var upstream payments.UpstreamError
			if errors.As(err, &upstream) {
				log.Printf("[%s] session creation failed: %v", route, err)
				respondWithError(c, http.StatusBadGateway, route, "payment provider unavailable")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "checkout failed")
			return
		}

		if err := ctrl.AttachSession(ctx, orderID, session.ID); err != nil {
			var conflict lifecycle.StateConflictError
			switch {
			case errors.Is(err, lifecycle.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.As(err, &conflict), errors.Is(err, lifecycle.ErrConflict):
				log.Printf("[%s] session %s not attached: %v", route, session.ID, err)
				c.JSON(http.StatusConflict, gin.H{"error": "order already finalized"})
			default:
				respondWithError(c, http.StatusInternalServerError, route, "db error")
			}
			return
		}

		log.Printf("[%s] session %s attached to order %s", route, session.ID, orderID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"sessionId": session.ID,
			"url":       session.URL,
		})
	}
}
