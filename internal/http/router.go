package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chargehub/internal/http/handlers"
	"chargehub/internal/http/middleware"
	"chargehub/internal/ws"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Telemetry   *handlers.TelemetryHandlers
	Auth        *handlers.AuthHandlers
	Chargers    *handlers.ChargerHandlers
	Controllers *handlers.ControllerHandlers
	Sessions    *handlers.SessionHandlers
	Companies   *handlers.CompanyHandlers
	Users       *handlers.UserHandlers
	Dashboard   *handlers.DashboardHandlers
	StatusFeed  *ws.StatusFeed
	Health      http.HandlerFunc
}

// NewRouter wires HTTP routes. The public ingestion endpoints authenticate
// with charger API keys; everything under the session group needs a browser
// session, and the admin subgroups additionally the admin role.
func NewRouter(deps RouterDeps, sessionAuth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", deps.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Post("/charging-session", deps.Telemetry.ChargingSession)
			r.Post("/controller-data", deps.Telemetry.ControllerData)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", deps.Auth.Login)
			r.Post("/logout", deps.Auth.Logout)
			r.Post("/reset", deps.Auth.RequestReset)
			r.Post("/reset/{token}", deps.Auth.ConfirmReset)
			r.Get("/register/{token}", deps.Auth.LookupInvitation)
			r.Post("/register/{token}", deps.Auth.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)

			r.Get("/dashboard", deps.Dashboard.Overview)
			r.With(middleware.RequireAdmin).Get("/dashboard/companies", deps.Dashboard.CompanyConsumption)

			r.Get("/ws/status", deps.StatusFeed.Handle)

			r.Route("/chargers", func(r chi.Router) {
				r.Get("/", deps.Chargers.List)
				r.With(middleware.RequireAdmin).Post("/", deps.Chargers.Create)
				r.Route("/{chargerID}", func(r chi.Router) {
					r.Get("/", deps.Chargers.Get)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAdmin)
						r.Put("/", deps.Chargers.Update)
						r.Delete("/", deps.Chargers.Delete)
						r.Post("/api-key", deps.Chargers.RegenerateAPIKey)
						r.Post("/restart", deps.Chargers.Restart)
						r.Post("/import", deps.Chargers.ImportCSV)
					})
				})
			})

			r.Route("/controllers/{controllerUID}", func(r chi.Router) {
				r.Get("/", deps.Controllers.Get)
				r.With(middleware.RequireAdmin).Put("/", deps.Controllers.Rename)
				r.Get("/charging-data", deps.Controllers.LiveData)
				r.Get("/sessions", deps.Sessions.ListByController)
				r.Get("/sessions/export", deps.Sessions.Export)
			})

			r.Get("/sessions/{sessionID}", deps.Sessions.Get)

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", deps.Companies.List)
				r.With(middleware.RequireAdmin).Post("/", deps.Companies.Create)
				r.Route("/{companyID}", func(r chi.Router) {
					r.Get("/", deps.Companies.Get)
					r.With(middleware.RequireAdmin).Put("/", deps.Companies.Update)
					r.With(middleware.RequireAdmin).Delete("/", deps.Companies.Delete)

					r.Post("/follow", deps.Companies.Follow)

					r.Get("/members", deps.Companies.Members)
					r.Post("/members", deps.Companies.AddMember)
					r.Delete("/members/{userID}", deps.Companies.RemoveMember)
					r.Put("/members/{userID}/rfid", deps.Companies.SetMemberRfid)

					r.Get("/rfid-tags", deps.Companies.ListRfidTags)
					r.Post("/rfid-tags", deps.Companies.SaveRfidTag)
					r.Delete("/rfid-tags/{rfidID}", deps.Companies.DeleteRfidTag)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", deps.Users.List)
				r.Delete("/{userID}", deps.Users.Delete)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", deps.Users.Invite)
				r.Post("/{invitationID}/resend", deps.Users.ResendInvitation)
				r.Delete("/{invitationID}", deps.Users.CancelInvitation)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", deps.Users.Profile)
				r.Put("/", deps.Users.UpdateProfile)
				r.Post("/password", deps.Users.ChangePassword)
			})
		})
	})

	return r
}
