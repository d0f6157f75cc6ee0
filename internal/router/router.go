// Package router sets up all HTTP routes and middleware chains for the
// vocabulary server.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vocabserve/internal/handlers"
	"vocabserve/internal/middleware"
	"vocabserve/web"
)

// New creates and returns the configured Chi router. limiter may be nil;
// when set it guards the routes that query vocabulary sources.
func New(vocab *handlers.Vocab, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", vocab.Health)

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("embedded static assets: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", vocab.Index)
	r.Get("/about", vocab.About)
	r.Get("/vocabulary/", vocab.Vocabularies)

	// Routes below reach the vocabulary sources.
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Get("/vocabulary/{vocab_id}", vocab.Vocabulary)
		r.Get("/vocabulary/{vocab_id}/concept/", vocab.Concepts)
		r.Get("/vocabulary/{vocab_id}/collection/", vocab.Collections)
		r.Get("/concept/", vocab.AllConcepts)
		r.Get("/collection/", vocab.AllCollections)
		r.Get("/object", vocab.Object)
	})

	return r
}
