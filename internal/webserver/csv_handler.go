package webserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/webserver/service"
	"github.com/mdouchement/csvmill/internal/webserver/weberror"
	"github.com/mdouchement/logger"
)

type csvapi struct {
	logger   logger.Logger
	db       database.Client
	ingester *service.Ingester
	status   *service.Status
	exporter *service.Exporter
}

func (h *csvapi) Upload(c echo.Context) error {
	c.Set("handler_method", "csvapi.Upload")

	fh, err := c.FormFile("csv")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "No file uploaded",
		})
	}

	f, err := fh.Open()
	if err != nil {
		return weberror.Runtime(err.Error())
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return weberror.Runtime(err.Error())
	}

	blob, err := h.ingester.Ingest(content)
	if err != nil {
		if h.db.IsConflict(err) {
			return weberror.Conflict(err.Error())
		}
		return weberror.Runtime(err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "File uploaded successfully",
		"fileId":  blob.ID,
	})
}

func (h *csvapi) Status(c echo.Context) error {
	c.Set("handler_method", "csvapi.Status")

	progress, err := h.status.Check(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.NotFound(fmt.Sprintf("no csv found for id = %s", c.Param("id")))
		}
		return weberror.Runtime(err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"countRows":         progress.CountRows,
			"countRowsInserted": progress.CountRowsInserted,
			"status":            progress.Status,
		},
	})
}

func (h *csvapi) Download(c echo.Context) error {
	c.Set("handler_method", "csvapi.Download")

	payload, err := h.exporter.Render(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.NotFound(fmt.Sprintf("no csv found for id = %s", c.Param("id")))
		}
		return weberror.Runtime(err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="output.csv"`)
	return c.Blob(http.StatusOK, "text/csv", payload)
}
