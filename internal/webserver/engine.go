package webserver

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/pipeline"
	"github.com/mdouchement/csvmill/internal/storage"
	"github.com/mdouchement/csvmill/internal/webserver/service"
	"github.com/mdouchement/logger"

	middlewarepkg "github.com/mdouchement/csvmill/internal/webserver/middleware"
)

// A Controller is an Iversion Of Control pattern used to init the server package.
type Controller struct {
	Version  string
	Logger   logger.Logger
	Database database.Client
	Storage  storage.Backend
	Pool     *pipeline.Pool
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Gzip())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
	}))
	engine.Use(middlewarepkg.Logger(ctrl.Logger))

	engine.HTTPErrorHandler = middlewarepkg.NewHTTPErrorHandler(ctrl.Logger)

	//
	//
	//

	router := engine.Group("")

	// Generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	// CSV pipeline
	//
	csvapi := csvapi{
		logger:   ctrl.Logger,
		db:       ctrl.Database,
		ingester: service.NewIngester(ctrl.Database, ctrl.Storage, ctrl.Pool.Enqueue),
		status:   service.NewStatus(ctrl.Database),
		exporter: service.NewExporter(ctrl.Database),
	}
	router.POST("/csv", csvapi.Upload)
	router.GET("/csv/:id", csvapi.Status)
	router.GET("/csv/download/:id", csvapi.Download)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}
