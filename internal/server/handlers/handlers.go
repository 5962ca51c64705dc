package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/cache"
	"github.com/agentstation/refdata/internal/server/events"
	"github.com/agentstation/refdata/internal/server/response"
	"github.com/agentstation/refdata/internal/server/sse"
	ws "github.com/agentstation/refdata/internal/server/websocket"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// maxUploadSize bounds multipart uploads held in memory.
const maxUploadSize = 32 << 20

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	hub            *refdata.Hub
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	hub *refdata.Hub,
	cache *cache.Cache,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		hub:            hub,
		cache:          cache,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// fail writes err as a typed error response. Server-side failures are
// logged with the request logger.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Msg("Request failed")
	}
	response.ErrorFromType(w, err)
}

// decode reads a JSON request body into v. An empty body decodes to the zero
// value.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// bind decodes the body and writes the 400 response on failure.
func bind(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decode(r, v); err != nil {
		response.InvalidBody(w)
		return false
	}
	return true
}

// pathID parses a numeric path parameter and writes the 400 response on
// failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(w, "Invalid "+strings.ReplaceAll(name, "_", " ")+".")
		return 0, false
	}
	return id, true
}

// queryID parses an optional numeric query parameter. A missing parameter
// gives zero.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.NewValidationError(name, raw, "Invalid "+name+" '"+raw+"'.")
	}
	return id, nil
}

// upload reads the "file" part of a multipart request.
func upload(r *http.Request) (refdata.Upload, func(), error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return refdata.Upload{}, nil, errors.Invalidf("Expected a multipart upload with a file field.")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return refdata.Upload{}, nil, errors.Invalidf("Expected a multipart upload with a file field.")
	}
	return refdata.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}
