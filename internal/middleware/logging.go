package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"labelcam/internal/logger"
)

type printer struct {
	logger *logger.Logger
}

func (p printer) Print(v ...interface{}) {
	p.logger.Info("%s", fmt.Sprint(v...))
}

// RequestLogger logs each request to the info log in chi's default format.
func RequestLogger(logger *logger.Logger) func(http.Handler) http.Handler {
	return chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: printer{logger}, NoColor: true})
}
