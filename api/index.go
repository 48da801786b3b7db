package handler

import (
	"net/http"

	"helpmate-backend/bootstrap"
	"helpmate-backend/internal/interfaces/router"
)

var serverless http.Handler

func init() {
	app, err := bootstrap.New()
	if err != nil {
		panic("app create: " + err.Error())
	}
	serverless = router.Handler(app.Fiber)
}

// Handler is the Vercel serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	serverless.ServeHTTP(w, r)
}
