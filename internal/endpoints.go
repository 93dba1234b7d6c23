package internal

import (
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"golang.org/x/net/context"

	"github.com/tbrandt/sked/internal/models"
)

// EventEndpoints is a collection of endpoints for working with the event service
type EventEndpoints struct {
	List   endpoint.Endpoint
	Get    endpoint.Endpoint
	Create endpoint.Endpoint
	Update endpoint.Endpoint
	Delete endpoint.Endpoint
	Health endpoint.Endpoint
}

// The base for all responses which always contains an "ok" property to show if the call was successful and a
// data element containing the result of the request
type basicResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

type pagingResponse struct {
	Rows uint        `json:"rows"`
	List interface{} `json:"list"`
}

// createEventRequest carries the event fields and initial participant names for a create call
type createEventRequest struct {
	Event        models.Event
	Participants []string
}

// updateEventRequest carries the target ID and the partial field set for an update call
type updateEventRequest struct {
	ID     string
	Update EventUpdate
}

// MakeEventEndpoints creates the endpoints needed to use the event service
func MakeEventEndpoints(s EventService) EventEndpoints {
	return EventEndpoints{
		List:   LogCalls("ListEvents", MakeListEventsEndpoint(s)),
		Get:    LogCalls("GetEvent", MakeGetEventEndpoint(s)),
		Create: LogCalls("CreateEvent", MakeCreateEventEndpoint(s)),
		Update: LogCalls("UpdateEvent", MakeUpdateEventEndpoint(s)),
		Delete: LogCalls("DeleteEvent", MakeDeleteEventEndpoint(s)),
		Health: MakeHealthEndpoint(s),
	}
}

// MakeListEventsEndpoint returns an endpoint calling the Search method of the EventService
func MakeListEventsEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		search, _ := request.(*Search)
		events, numRows, err := s.Search(ctx, search)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, pagingResponse{numRows, events}}, nil
	}
}

// MakeGetEventEndpoint returns an endpoint calling the Get method of the EventService
func MakeGetEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		ev, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeCreateEventEndpoint returns an endpoint calling the Create method of the EventService
func MakeCreateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(createEventRequest)
		ev, err := s.Create(ctx, &req.Event, req.Participants)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeUpdateEventEndpoint returns an endpoint calling the Update method of the EventService
func MakeUpdateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateEventRequest)
		ev, err := s.Update(ctx, req.ID, &req.Update)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeDeleteEventEndpoint returns an endpoint calling the Delete method of the EventService
func MakeDeleteEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return basicResponse{OK: true}, nil
	}
}

// MakeHealthEndpoint returns an endpoint calling the Health method of the EventService.
// An unreachable store is reported as an error so that the transport answers with a
// service-unavailable status.
func MakeHealthEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		hs := s.Health(ctx)
		if hs.Status != StatusHealthy {
			return nil, MakeErrorWithData(
				http.StatusServiceUnavailable,
				ErrCodeStoreUnreachable,
				"Event store is unreachable",
				hs,
			)
		}
		return hs, nil
	}
}
