package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	chathandler "github.com/deepgram/voxchat/internal/api/handlers/chat"
	"github.com/deepgram/voxchat/internal/api/middleware"
	"github.com/deepgram/voxchat/internal/metrics"
	"github.com/deepgram/voxchat/internal/services"
	"github.com/deepgram/voxchat/pkg/httpext"
)

// NewRouter registers every route served by voxchat
func NewRouter(services *services.Services) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", HandleHealth).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/chat", middleware.RateLimit("chat", services.GetRateLimitCounter())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chathandler.HandleChat(services.GetChatService(), services.GetChatConfig().Streaming, w, r)
	}))).Methods("POST")

	return router
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpext.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
