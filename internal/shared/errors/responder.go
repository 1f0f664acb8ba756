package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper maps domain or application errors to a ProblemDetail.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Responder writes Problem Details responses, resolving errors through its mappers.
type Responder struct {
	baseURI string
	mappers []ErrorMapper
	logger  *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithBaseURI prefixes relative problem types with the given URI.
func WithBaseURI(uri string) Option {
	return func(r *Responder) {
		r.baseURI = uri
	}
}

// WithMappers appends error mappers, tried in order.
func WithMappers(mappers ...ErrorMapper) Option {
	return func(r *Responder) {
		r.mappers = append(r.mappers, mappers...)
	}
}

// WithLogger sets the logger for server-side problems. Defaults to slog.Default at call time.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

// NewResponder creates a responder.
func NewResponder(opts ...Option) *Responder {
	r := &Responder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond sends a ProblemDetail response with the problem content type.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// Resolve maps err to a problem: mappers first, then an embedded ProblemDetail, then 500.
func (r *Responder) Resolve(err error) ProblemDetail {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			return problem
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}
	return ErrInternal.WithDetail(err.Error())
}

// RespondError resolves err and responds. Server-side problems are logged with the request path.
func (r *Responder) RespondError(c *gin.Context, err error) {
	problem := r.Resolve(err)
	if problem.Status >= http.StatusInternalServerError {
		r.log().LogAttrs(c.Request.Context(), slog.LevelError, "request failed",
			slog.String("http.method", c.Request.Method),
			slog.String("http.path", c.Request.URL.Path),
			slog.Int("http.status", problem.Status),
			slog.Bool("retryable", problem.IsRetryable()),
			slog.String("error", err.Error()),
		)
	}
	r.Respond(c, problem)
}

// BadRequest sends a 400 problem response.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// ValidationFailed sends a 400 problem response with field errors.
func (r *Responder) ValidationFailed(c *gin.Context, fieldErrors map[string]string) {
	r.Respond(c, NewValidationProblem(fieldErrors))
}

func (r *Responder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
