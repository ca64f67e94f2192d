package server

import (
	"log"
	"net/http"

	"focalai/internal/gateway/handler"
	"focalai/internal/gateway/handler/rpc"
	"focalai/internal/gateway/middleware"
)

func NewMux(
	refineHandler *handler.RefineHandler,
	refinementHandler *rpc.RefinementHandler,
	debateHandler *rpc.DebateHandler,
	logger *log.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(refinementHandler.Routes())

	// JSON API
	mux.HandleFunc("POST /api/refine", refineHandler.HandleRefine)
	mux.HandleFunc("POST /api/refine/feedback", refineHandler.HandleFeedback)
	mux.HandleFunc("GET /api/ideas", refineHandler.HandleIdeas)
	mux.HandleFunc("GET /api/ideas/{id}", refineHandler.HandleIdea)
	mux.HandleFunc("GET /api/ideas/{id}/artifacts/{path...}", refineHandler.HandleArtifact)
	mux.HandleFunc("GET /api/credits", refineHandler.HandleCredits)
	mux.HandleFunc("GET /api/personas", handler.HandlePersonas)
	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	// Streaming
	mux.HandleFunc("/ws/debate", debateHandler.HandleDebateWS)

	// Middleware
	return middleware.CORS(middleware.Logging(logger)(mux))
}
