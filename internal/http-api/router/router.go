package router

import (
	"log/slog"
	"net/http"
	"strings"

	"yamdb/internal/http-api/handler"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/service"
	"yamdb/internal/http-api/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Categories service.CategoryService
	Genres     service.GenreService
	Titles     service.TitleService
	Reviews    service.ReviewService
	Comments   service.CommentService
}

type Options struct {
	APIPrefix   string
	CORSOrigins []string
	// Gatherer serves /metrics when non-nil.
	Gatherer prometheus.Gatherer
	DB       handler.Pinger
	Logger   *slog.Logger
}

// New builds the API handler. Trailing slashes on request paths are
// optional.
func New(svcs Services, opts Options) (http.Handler, error) {
	if err := validation.RegisterWithGin(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID(), middleware.RequestLogger(logger), gin.Recovery())
	if opts.Gatherer != nil {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/healthz", handler.NewHealthHandler(opts.DB).Healthz)

	api := r.Group(opts.APIPrefix)
	handler.NewAuthHandler(svcs.Auth).RegisterRoutes(api)

	protected := api.Group("", middleware.AuthMiddleware(svcs.Auth))
	handler.NewUserHandler(svcs.Users).RegisterRoutes(protected)
	handler.NewCategoryHandler(svcs.Categories).RegisterRoutes(protected)
	handler.NewGenreHandler(svcs.Genres).RegisterRoutes(protected)
	handler.NewTitleHandler(svcs.Titles).RegisterRoutes(protected)
	handler.NewReviewHandler(svcs.Reviews).RegisterRoutes(protected)
	handler.NewCommentHandler(svcs.Comments).RegisterRoutes(protected)

	var h http.Handler = stripTrailingSlash(r)
	if len(opts.CORSOrigins) > 0 {
		h = cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		})(h)
	}
	return h, nil
}

func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			req.URL.Path = "/" + strings.Trim(p, "/")
			if req.URL.RawPath != "" {
				req.URL.RawPath = "/" + strings.Trim(req.URL.RawPath, "/")
			}
		}
		next.ServeHTTP(w, req)
	})
}
