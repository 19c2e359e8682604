package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues/{leagueID}/props", handler.ListPlayerProps)
	mux.HandleFunc("POST /v1/projections", handler.SaveCustomProjection)
	mux.HandleFunc("GET /v1/projections", handler.ListCustomProjections)
	mux.HandleFunc("DELETE /v1/projections/{playerID}", handler.DeleteCustomProjection)
	mux.HandleFunc("POST /v1/leagues/{leagueID}/refresh", handler.TriggerRefresh)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshJob)))
	mux.Handle("POST /v1/internal/jobs/games", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestGames)))
}
