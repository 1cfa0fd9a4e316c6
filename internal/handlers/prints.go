package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/geometry"
	"backend/internal/models"
	"backend/internal/pricing"
)

type createPrintRequest struct {
	FileName  string          `json:"fileName" binding:"required"`
	FileRef   string          `json:"fileRef"`
	Triangles [][3][3]float64 `json:"triangles" binding:"required"`
	Material  string          `json:"material" binding:"required"`
	Quality   string          `json:"quality" binding:"required"`
	Color     string          `json:"color" binding:"required"`
	ScalePct  float64         `json:"scalePct"`
	Quantity  int             `json:"quantity"`
}

// CreatePrint accepts a quote: it re-runs the pricing pipeline server-side
// (client numbers are never trusted) and persists the Print + draft Order
// pair in one transaction.
func CreatePrint(db *mongo.Database, catalog *pricing.Catalog, envelope geometry.Size) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /prints"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createPrintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if !catalog.HasColor(req.Material, req.Color) {
			respondWithError(c, http.StatusBadRequest, route, "color not available for material")
			return
		}

		quote, err := buildQuote(quoteRequest{
			Triangles: req.Triangles,
			Material:  req.Material,
			Quality:   req.Quality,
			ScalePct:  req.ScalePct,
			Quantity:  req.Quantity,
		}, catalog, envelope)
		if err != nil {
			status, msg := quoteErrorStatus(err)
			respondWithError(c, status, route, msg)
			return
		}

		qty := req.Quantity
		if qty < 1 {
			qty = 1
		}

		now := time.Now()
		print := models.Print{
			FileName:  strings.TrimSpace(req.FileName),
			FileRef:   strings.TrimSpace(req.FileRef),
			Material:  req.Material,
			Quality:   req.Quality,
			Color:     req.Color,
			Scale:     quote.AppliedScale,
			Qty:       qty,
			GramsEach: quote.Estimate.GramsEach,
			PriceEach: quote.Estimate.PriceUSDEach,
			BaseFee:   catalog.Constants().BaseFeeUSD,
			Total:     quote.Estimate.TotalPriceUSD,
			Status:    models.OrderStatusDraft,
			CreatedAt: now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var printID, orderID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			res, err := db.Collection("prints").InsertOne(sessCtx, print)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				printID = id
			}

			order := models.Order{
				PrintID:   printID,
				Status:    models.OrderStatusDraft,
				Version:   0,
				CreatedAt: now,
			}
			orderRes, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := orderRes.InsertedID.(primitive.ObjectID); ok {
				orderID = id
			}
			return nil, nil
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] created print %s / order %s (%s, total %.2f USD)", route, printID.Hex(), orderID.Hex(), req.Material, print.Total)
		c.JSON(http.StatusCreated, gin.H{
			"printId":  printID.Hex(),
			"orderId":  orderID.Hex(),
			"estimate": quote.Estimate,
		})
	}
}
