package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/tbrandt/sked/internal/ctxhelper"
	"github.com/tbrandt/sked/internal/log"
	"github.com/tbrandt/sked/internal/models"
)

const (
	apiBasePath = "/api"
)

// Defines an error that defines the HTTP status that should be returned
type httpStatuser interface {
	Status() int
}

// Defines an error that returns a machine-readable error code
type errorCoder interface {
	ErrorCode() string
}

// Defines an error that contains a data field with additional information
type dataBearer interface {
	Data() interface{}
}

type errorResponse struct {
	basicResponse
	// The error code
	Error   string      `json:"error"`
	Message string      `json:"errorMessage"`
	Details interface{} `json:"errorDetails,omitempty"`
}

// eventPayload is the JSON shape the REST adapter accepts for event creation.
// Participants are plain names; the service turns them into participant records.
type eventPayload struct {
	Title        string   `json:"title"`
	Agenda       string   `json:"agenda"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Importance   string   `json:"importance"`
	Location     string   `json:"location"`
	Coordinator  string   `json:"coordinator"`
	Recurrence   string   `json:"recurrence"`
	Participants []string `json:"participants"`
}

// MakeHTTPHandler creates the main HTTP handler for the Sked service. It mounts the
// resource-oriented adapter under /api and the legacy RPC adapter under /soap; both
// translate to the same EventService and never touch the store themselves.
func MakeHTTPHandler(es EventService, logger *logrus.Entry) http.Handler {
	r := mux.NewRouter()

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerBefore(makeContextInjector(logger)),
	}

	// -- Event service (REST adapter) -----------------
	{
		evEp := MakeEventEndpoints(es)

		// List / Search
		r.Methods(http.MethodGet).Path(apiBasePath + "/events").Handler(httptransport.NewServer(
			evEp.List,
			decodeSearchRequest,
			encodeJSONResponse,
			options...,
		))

		// Create
		r.Methods(http.MethodPost).Path(apiBasePath + "/events").Handler(httptransport.NewServer(
			evEp.Create,
			decodeCreateEventRequest,
			encodeJSONResponse,
			options...,
		))

		// Get
		r.Methods(http.MethodGet).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Update
		r.Methods(http.MethodPut).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Update,
			decodeUpdateEventRequest,
			encodeJSONResponse,
			options...,
		))

		// Delete
		r.Methods(http.MethodDelete).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Health
		r.Methods(http.MethodGet).Path(apiBasePath + "/health").Handler(httptransport.NewServer(
			evEp.Health,
			decodeNilRequest,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Legacy RPC adapter ---------------------------
	{
		soap := MakeSOAPHandler(es, logger.WithField(log.FldTransport, "SOAP"))
		r.Methods(http.MethodPost).Path("/soap").Handler(soap)
		r.Methods(http.MethodGet).Path("/soap").Handler(soap)
	}

	// Simple alive answer for checking if HTTP can be reached
	r.Methods(http.MethodGet).Path("/alive").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		data := map[string]bool{"ok": true}
		json.NewEncoder(w).Encode(data)
	})

	return r
}

// makeContextInjector provides the request context with the transport's logger
func makeContextInjector(logger *logrus.Entry) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		return context.WithValue(ctx, ctxhelper.KeyLogger, logger)
	}
}

// decodeNilRequest just does nothing with the request. It is used for endpoints that don't need anything to be passed
func decodeNilRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	return nil, nil
}

// Decodes an event ID from the "id" path variable provided by GoRilla
func decodeIDFromPath(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	id, ok := vars["id"]
	if !ok || id == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "No event ID provided")
	}
	return id, nil
}

// decodeSearchRequest decodes the parameters of an event query by checking the GET variables
// "q", "coordinator", "from", "to", "limit" and "offset"
func decodeSearchRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	val := r.URL.Query()
	search := &Search{
		Text:        val.Get("q"),
		Coordinator: val.Get("coordinator"),
		From:        val.Get("from"),
		To:          val.Get("to"),
		Pagination:  Pagination{Limit: 50},
	}
	if i, err := strconv.ParseUint(val.Get("offset"), 10, 64); err == nil {
		search.Offset = uint(i)
	}
	if i, err := strconv.ParseUint(val.Get("limit"), 10, 64); err == nil {
		search.Limit = uint(i)
	}
	return search, nil
}

// decodeCreateEventRequest reads the event fields and initial participant names from the request's JSON body
func decodeCreateEventRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	return createEventRequest{
		Event: models.Event{
			Title:       payload.Title,
			Agenda:      payload.Agenda,
			Date:        payload.Date,
			Time:        payload.Time,
			Importance:  payload.Importance,
			Location:    payload.Location,
			Coordinator: payload.Coordinator,
			Recurrence:  payload.Recurrence,
		},
		Participants: payload.Participants,
	}, nil
}

// decodeUpdateEventRequest reads a partial field set from the JSON body and the target event's ID from the path
func decodeUpdateEventRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var upd EventUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateEventRequest{ID: id.(string), Update: upd}, nil
}

// Encodes a typical JSON response
func encodeJSONResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// Builds an error response based on the incoming error
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		panic("encodeError with nil error")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if st, ok := err.(httpStatuser); ok {
		w.WriteHeader(st.Status())
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	ret := errorResponse{
		basicResponse: basicResponse{false, nil},
		Message:       err.Error(),
		Error:         ErrCodeUnknown,
	}
	if cd, ok := err.(errorCoder); ok {
		ret.Error = cd.ErrorCode()
	}
	if db, ok := err.(dataBearer); ok {
		if data := db.Data(); data != nil {
			if err, ok := data.(error); ok {
				ret.Details = err.Error()
			} else {
				ret.Details = data
			}
		}
	}
	json.NewEncoder(w).Encode(ret)
}
