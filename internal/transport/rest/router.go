package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/roamplan/roamplan/internal/assistant"
	"github.com/roamplan/roamplan/internal/expense"
	"github.com/roamplan/roamplan/internal/identity"
	"github.com/roamplan/roamplan/internal/transport/middleware"
	"github.com/roamplan/roamplan/internal/transport/swagger"
	"github.com/roamplan/roamplan/internal/trip"
)

// RegisterAllRoutes wires the full REST surface onto the router.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	allowedOrigins string,
	identityHandler *identity.Handler,
	tripHandler *trip.Handler,
	expenseHandler *expense.Handler,
	assistantHandler *assistant.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORSWithOrigins(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec at root, UI under /swagger
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Session bootstrap needs no token
		if identityHandler != nil {
			r.Post("/guest/session", identityHandler.StartSession)
		}

		// Currency and category sets are public reference data
		if expenseHandler != nil {
			r.Get("/currencies", expenseHandler.GetCurrencies)
		}

		if identityHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(identityHandler.AuthMiddleware)

				pr.Delete("/guest/session", identityHandler.ClearSession)

				if tripHandler != nil {
					pr.Route("/trips", func(tr chi.Router) {
						tr.Post("/", tripHandler.CreateTrip)
						tr.Get("/", tripHandler.ListTrips)
						tr.Get("/{id}", tripHandler.GetTrip)
						tr.Patch("/{id}", tripHandler.UpdateTrip)
						tr.Patch("/{id}/metadata", tripHandler.PatchMetadata)
						tr.Patch("/{id}/notes", tripHandler.UpdateNotes)
						tr.Get("/{id}/phase", tripHandler.GetTripPhase)

						if expenseHandler != nil {
							tr.Get("/{id}/expenses", expenseHandler.ListExpenses)
							tr.Post("/{id}/expenses", expenseHandler.AddExpense)
							tr.Put("/{id}/expenses", expenseHandler.ReplaceExpenses)
							tr.Delete("/{id}/expenses/{expenseID}", expenseHandler.RemoveExpense)
							tr.Get("/{id}/expenses/summary", expenseHandler.GetSummary)
						}
					})
				}

				if assistantHandler != nil {
					pr.Post("/assistant/chat", assistantHandler.Chat)
				}
			})
		}
	})
}
