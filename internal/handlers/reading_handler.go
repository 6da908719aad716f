package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bptracker/internal/apperr"
	"bptracker/internal/models"
	"bptracker/internal/service"
)

type ReadingHandler struct {
	service       service.ReadingService
	location      *time.Location
	maxUploadSize int64
	logger        *zap.Logger
}

func NewReadingHandler(svc service.ReadingService, location *time.Location, maxUploadSize int64, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{
		service:       svc,
		location:      location,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(zap.String("component", "reading_handler")),
	}
}

// Upload accepts a multipart image in field "image", reads the monitor
// display and stores the reading.
func (h *ReadingHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	file, err := c.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("image exceeds %d bytes", h.maxUploadSize),
				Kind:  kindBadRequest,
			})
			return
		}
		badRequest(c, "no image file provided")
		return
	}
	if file.Filename == "" || file.Size == 0 {
		badRequest(c, "no image file provided")
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindInternal, "ReadingHandler.Upload", err, ""))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindInternal, "ReadingHandler.Upload", err, ""))
		return
	}

	reading, err := h.service.IngestImage(c.Request.Context(), data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, reading.Vitals())
}

// Add stores a manually entered reading from a JSON or form body.
func (h *ReadingHandler) Add(c *gin.Context) {
	input, err := h.bindManual(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	reading, err := h.service.IngestManual(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, reading.Vitals())
}

func (h *ReadingHandler) bindManual(c *gin.Context) (service.ManualInput, error) {
	const op = "ReadingHandler.Add"

	var get func(key string) (interface{}, bool)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		payload := map[string]interface{}{}
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return service.ManualInput{}, apperr.New(apperr.KindFormat, op, err, "invalid JSON body")
		}
		get = func(key string) (interface{}, bool) {
			v, ok := payload[key]
			return v, ok && v != nil
		}
	} else {
		get = func(key string) (interface{}, bool) {
			v, ok := c.GetPostForm(key)
			return v, ok
		}
	}

	var input service.ManualInput
	for _, field := range []struct {
		key string
		dst *int
	}{
		{"systolic", &input.Systolic},
		{"diastolic", &input.Diastolic},
		{"pulse", &input.Pulse},
	} {
		v, _ := get(field.key)
		n, err := toInt(v)
		if err != nil {
			return service.ManualInput{}, apperr.New(apperr.KindFormat, op, err, "invalid integers")
		}
		*field.dst = n
	}

	for _, key := range []string{"date", "timestamp"} {
		v, ok := get(key)
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return service.ManualInput{}, apperr.New(apperr.KindFormat, op, nil, "invalid date format")
		}
		if s != "" {
			input.Date = s
			break
		}
	}

	return input, nil
}

// toInt accepts integers given as JSON numbers (120 or 120.0) or strings.
func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("%s is not an integer", t)
		}
		return int(f), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value %v", t)
	}
}

// Data lists readings, optionally limited to ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *ReadingHandler) Data(c *gin.Context) {
	dr, err := models.ParseDateRange(c.Query("from"), c.Query("to"), h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	readings, err := h.service.List(c.Request.Context(), dr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]models.ReadingView, len(readings))
	for i := range readings {
		views[i] = readings[i].View(h.location)
	}
	c.JSON(http.StatusOK, views)
}

// Summary returns per-period means for ?period=daily|weekly|monthly.
func (h *ReadingHandler) Summary(c *gin.Context) {
	dr, err := models.ParseDateRange(c.Query("from"), c.Query("to"), h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	period := c.DefaultQuery("period", "daily")
	buckets, err := h.service.Summary(c.Request.Context(), dr, period)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":  period,
		"buckets": buckets,
	})
}
