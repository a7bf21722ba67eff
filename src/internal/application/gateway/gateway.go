package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/separate"
	"github.com/resonate-audio/stem-worker/src/shared/config"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

type SeparateResponse struct {
	Status      string            `json:"status"`
	ReleaseID   string            `json:"releaseId"`
	TrackID     string            `json:"trackId"`
	StorageMode string            `json:"storageMode"`
	Stems       map[string]string `json:"stems"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	StorageMode    string `json:"storageMode"`
	ProcessingMode string `json:"processingMode"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func NewGateway(
	handler separate.JobHandler,
	storageMode config.StorageMode,
	processingMode config.ProcessingMode,
) Gateway {
	return Gateway{
		handler:        handler,
		storageMode:    storageMode,
		processingMode: processingMode,
	}
}

type Gateway struct {
	handler        separate.JobHandler
	storageMode    config.StorageMode
	processingMode config.ProcessingMode
}

// Separate accepts a multipart audio upload and runs the separation
// pipeline synchronously. The direct path has no retry; failures surface as
// a 500 with a detail string and the caller decides what to do.
func (g Gateway) Separate(c echo.Context) error {
	releaseID := c.Param("releaseId")
	trackID := c.Param("trackId")
	callbackURL := c.QueryParam("callbackUrl")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing uploaded audio file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		cerr.Log(cerr.Wrap(err).Error("Failed to open the uploaded file"))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Failed to open the uploaded file"})
	}
	defer file.Close()

	stems, err := g.handler.ProcessUpload(
		c.Request().Context(),
		releaseID,
		trackID,
		fileHeader.Filename,
		file,
		callbackURL,
	)
	if err != nil {
		cerr.Log(cerr.Fields(cerr.F{
			"release_id": releaseID,
			"track_id":   trackID,
		}).Wrap(err).Error("Failed to process uploaded track"))

		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, SeparateResponse{
		Status:      "success",
		ReleaseID:   releaseID,
		TrackID:     trackID,
		StorageMode: string(g.storageMode),
		Stems:       stems,
	})
}

func (g Gateway) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		StorageMode:    string(g.storageMode),
		ProcessingMode: string(g.processingMode),
	})
}
