package internal

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/tbrandt/sked/internal/ctxhelper"
	"github.com/tbrandt/sked/internal/models"
)

// XML namespaces of the legacy RPC contract
const (
	soapEnvNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	soapSchemaNS = "http://eventscheduling.com/schemas"
	soapWsdlNS   = "http://eventscheduling.com/wsdl"
)

// Page size used when collecting the full event list for GetAllEvents
const soapPageSize = 200

// soapHandler implements the legacy RPC-style adapter. Like the REST adapter it is a
// pure translation layer: it parses the envelope, calls the shared EventService and
// renders the result - no service semantics of its own.
type soapHandler struct {
	service EventService
	logger  *logrus.Entry
}

// MakeSOAPHandler creates the HTTP handler serving the legacy SOAP interface
func MakeSOAPHandler(es EventService, logger *logrus.Entry) http.Handler {
	return &soapHandler{service: es, logger: logger}
}

// -- Request document structure ---------------------------------------------------------------------------------------
// The decoder matches on local element names only, so requests with or without
// namespace prefixes are both accepted.

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	AddEvent     *soapEventCall `xml:"AddEvent"`
	GetEvent     *soapIDCall    `xml:"GetEvent"`
	GetAllEvents *struct{}      `xml:"GetAllEvents"`
	UpdateEvent  *soapEventCall `xml:"UpdateEvent"`
	DeleteEvent  *soapIDCall    `xml:"DeleteEvent"`
}

type soapIDCall struct {
	EventID string `xml:"eventId"`
}

type soapEventCall struct {
	EventData *soapEvent `xml:"eventData"`
	// Some older clients wrap the payload in an "event" element instead
	Event *soapEvent `xml:"event"`
}

// payload returns whichever event element the call carries
func (c *soapEventCall) payload() *soapEvent {
	if c.EventData != nil {
		return c.EventData
	}
	return c.Event
}

type soapEvent struct {
	ID           string            `xml:"id"`
	Title        string            `xml:"title"`
	Agenda       string            `xml:"agenda"`
	Date         string            `xml:"date"`
	Time         string            `xml:"time"`
	Importance   string            `xml:"importance"`
	Location     string            `xml:"location"`
	Coordinator  string            `xml:"coordinator"`
	Recurrence   string            `xml:"recurrence"`
	Participants *soapParticipants `xml:"participants"`
}

type soapParticipants struct {
	Names []string `xml:"participant"`
}

// -- Response document structure --------------------------------------------------------------------------------------

type soapRespEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	NSSoap  string   `xml:"xmlns:soap,attr"`
	NSTns   string   `xml:"xmlns:tns,attr"`
	NSSch   string   `xml:"xmlns:sch,attr"`
	Body    soapRespBody
}

type soapRespBody struct {
	XMLName xml.Name    `xml:"soap:Body"`
	Content interface{}
}

type soapFaultXML struct {
	XMLName     xml.Name `xml:"soap:Fault"`
	FaultCode   string   `xml:"faultcode"`
	FaultString string   `xml:"faultstring"`
	Detail      string   `xml:"detail,omitempty"`
}

type soapEventXML struct {
	XMLName      xml.Name `xml:"sch:event"`
	ID           string   `xml:"sch:id"`
	Title        string   `xml:"sch:title"`
	Agenda       string   `xml:"sch:agenda,omitempty"`
	Date         string   `xml:"sch:date"`
	Time         string   `xml:"sch:time"`
	Importance   string   `xml:"sch:importance"`
	Location     string   `xml:"sch:location,omitempty"`
	Coordinator  string   `xml:"sch:coordinator"`
	Recurrence   string   `xml:"sch:recurrence"`
	Participants []string `xml:"sch:participants>sch:participant"`
	CreatedAt    string   `xml:"sch:createdAt"`
	UpdatedAt    string   `xml:"sch:updatedAt"`
}

type addEventResponse struct {
	XMLName xml.Name `xml:"tns:AddEventResponse"`
	Return  string   `xml:"tns:return"`
}

type getEventResponse struct {
	XMLName xml.Name `xml:"tns:GetEventResponse"`
	Event   soapEventXML
}

type getAllEventsResponse struct {
	XMLName xml.Name `xml:"tns:GetAllEventsResponse"`
	Events  []soapEventXML
}

type updateEventResponse struct {
	XMLName xml.Name `xml:"tns:UpdateEventResponse"`
	Return  string   `xml:"tns:return"`
}

type deleteEventResponse struct {
	XMLName xml.Name `xml:"tns:DeleteEventResponse"`
	Return  string   `xml:"tns:return"`
}

// -- Handler ----------------------------------------------------------------------------------------------------------

func (h *soapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		fmt.Fprint(w, wsdlDocument)
		return
	}

	ctx := context.WithValue(r.Context(), ctxhelper.KeyLogger, h.logger)

	var env soapEnvelope
	if err := xml.NewDecoder(r.Body).Decode(&env); err != nil {
		h.writeFault(w, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalXML,
			fmt.Sprintf("Failed to parse SOAP envelope: %v", err),
		))
		return
	}

	switch {
	case env.Body.AddEvent != nil:
		h.addEvent(ctx, w, env.Body.AddEvent)
	case env.Body.GetEvent != nil:
		h.getEvent(ctx, w, env.Body.GetEvent)
	case env.Body.GetAllEvents != nil:
		h.getAllEvents(ctx, w)
	case env.Body.UpdateEvent != nil:
		h.updateEvent(ctx, w, env.Body.UpdateEvent)
	case env.Body.DeleteEvent != nil:
		h.deleteEvent(ctx, w, env.Body.DeleteEvent)
	default:
		h.writeFault(w, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalXML,
			"Unknown or missing SOAP operation",
		))
	}
}

func (h *soapHandler) addEvent(ctx context.Context, w http.ResponseWriter, call *soapEventCall) {
	payload := call.payload()
	if payload == nil {
		h.writeFault(w, MakeError(http.StatusBadRequest, ErrCodeIllegalXML, "Missing event data"))
		return
	}
	ev := payload.toModel()
	var names []string
	if payload.Participants != nil {
		names = payload.Participants.Names
	}
	created, err := h.service.Create(ctx, &ev, names)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	h.writeResponse(w, addEventResponse{Return: created.ID})
}

func (h *soapHandler) getEvent(ctx context.Context, w http.ResponseWriter, call *soapIDCall) {
	ev, err := h.service.Get(ctx, call.EventID)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	h.writeResponse(w, getEventResponse{Event: eventToXML(ev)})
}

// getAllEvents returns every stored event. The legacy contract carries no paging
// parameters, so the handler pages through the service until the reported row
// count is exhausted.
func (h *soapHandler) getAllEvents(ctx context.Context, w http.ResponseWriter) {
	resp := getAllEventsResponse{Events: []soapEventXML{}}
	for offset := uint(0); ; {
		events, numRows, err := h.service.List(ctx, &Search{
			Pagination: Pagination{Offset: offset, Limit: soapPageSize},
		})
		if err != nil {
			h.writeFault(w, err)
			return
		}
		for i := range events {
			resp.Events = append(resp.Events, eventToXML(&events[i]))
		}
		offset += uint(len(events))
		if len(events) == 0 || offset >= numRows {
			break
		}
	}
	h.writeResponse(w, resp)
}

func (h *soapHandler) updateEvent(ctx context.Context, w http.ResponseWriter, call *soapEventCall) {
	payload := call.payload()
	if payload == nil || payload.ID == "" {
		h.writeFault(w, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "Missing event ID"))
		return
	}
	if _, err := h.service.Update(ctx, payload.ID, payload.toUpdate()); err != nil {
		h.writeFault(w, err)
		return
	}
	h.writeResponse(w, updateEventResponse{Return: "true"})
}

func (h *soapHandler) deleteEvent(ctx context.Context, w http.ResponseWriter, call *soapIDCall) {
	if err := h.service.Delete(ctx, call.EventID); err != nil {
		h.writeFault(w, err)
		return
	}
	h.writeResponse(w, deleteEventResponse{Return: "true"})
}

func (h *soapHandler) writeResponse(w http.ResponseWriter, content interface{}) {
	h.write(w, http.StatusOK, content)
}

// writeFault maps the service's error taxonomy onto a SOAP fault: client faults for
// validation and not-found errors, server faults for everything else. The
// machine-readable error code travels in the detail element.
func (h *soapHandler) writeFault(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if st, ok := err.(httpStatuser); ok {
		status = st.Status()
	}
	faultCode := "Server"
	if status < 500 {
		faultCode = "Client"
	}
	detail := ErrCodeUnknown
	if cd, ok := err.(errorCoder); ok {
		detail = cd.ErrorCode()
	}
	h.write(w, status, soapFaultXML{
		FaultCode:   faultCode,
		FaultString: err.Error(),
		Detail:      detail,
	})
}

func (h *soapHandler) write(w http.ResponseWriter, status int, content interface{}) {
	env := soapRespEnvelope{
		NSSoap: soapEnvNS,
		NSTns:  soapWsdlNS,
		NSSch:  soapSchemaNS,
		Body:   soapRespBody{Content: content},
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, xml.Header)
	if err := xml.NewEncoder(w).Encode(env); err != nil {
		h.logger.WithError(err).Error("Failed to encode SOAP response")
	}
}

// toModel converts the wire representation into an event model
func (e *soapEvent) toModel() models.Event {
	return models.Event{
		Title:       e.Title,
		Agenda:      e.Agenda,
		Date:        e.Date,
		Time:        e.Time,
		Importance:  e.Importance,
		Location:    e.Location,
		Coordinator: e.Coordinator,
		Recurrence:  e.Recurrence,
	}
}

// toUpdate converts the wire representation into a partial field update. The legacy
// contract cannot distinguish an absent element from an empty one, so empty fields
// are treated as not provided.
func (e *soapEvent) toUpdate() *EventUpdate {
	upd := &EventUpdate{}
	if e.Title != "" {
		upd.Title = &e.Title
	}
	if e.Agenda != "" {
		upd.Agenda = &e.Agenda
	}
	if e.Date != "" {
		upd.Date = &e.Date
	}
	if e.Time != "" {
		upd.Time = &e.Time
	}
	if e.Importance != "" {
		upd.Importance = &e.Importance
	}
	if e.Location != "" {
		upd.Location = &e.Location
	}
	if e.Coordinator != "" {
		upd.Coordinator = &e.Coordinator
	}
	if e.Recurrence != "" {
		upd.Recurrence = &e.Recurrence
	}
	if e.Participants != nil {
		upd.Participants = &e.Participants.Names
	}
	return upd
}

func eventToXML(ev *models.Event) soapEventXML {
	names := []string{}
	for _, p := range ev.Participants {
		names = append(names, p.Name)
	}
	return soapEventXML{
		ID:           ev.ID,
		Title:        ev.Title,
		Agenda:       ev.Agenda,
		Date:         ev.Date,
		Time:         ev.Time,
		Importance:   ev.Importance,
		Location:     ev.Location,
		Coordinator:  ev.Coordinator,
		Recurrence:   ev.Recurrence,
		Participants: names,
		CreatedAt:    ev.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    ev.UpdatedAt.Format(time.RFC3339),
	}
}

// Minimal service description answered on GET /soap
const wsdlDocument = `<?xml version="1.0" encoding="UTF-8"?>
<definitions xmlns="http://schemas.xmlsoap.org/wsdl/"
             xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
             xmlns:tns="http://eventscheduling.com/wsdl"
             xmlns:sch="http://eventscheduling.com/schemas"
             targetNamespace="http://eventscheduling.com/wsdl"
             name="EventSchedulingService">
  <portType name="EventSchedulingPortType">
    <operation name="AddEvent"/>
    <operation name="GetEvent"/>
    <operation name="GetAllEvents"/>
    <operation name="UpdateEvent"/>
    <operation name="DeleteEvent"/>
  </portType>
  <binding name="EventSchedulingBinding" type="tns:EventSchedulingPortType">
    <soap:binding style="rpc" transport="http://schemas.xmlsoap.org/soap/http"/>
  </binding>
  <service name="EventSchedulingService">
    <port name="EventSchedulingPort" binding="tns:EventSchedulingBinding">
      <soap:address location="/soap"/>
    </port>
  </service>
</definitions>`
