package log

const (
	// FldPath is the name of the log field for storing path name information
	FldPath = "path"
	// FldTransport is the name of the log field for storing a transport name
	FldTransport = "transport"
	// FldVersion is the version number of the application
	FldVersion = "ver"
	// FldID is the ID of an entity used in the log entry
	FldID = "id"
	// FldSearch is a search term used in a search
	FldSearch = "search"
	// FldCoordinator is the coordinator an event query filters on
	FldCoordinator = "coordinator"
	// FldOffset is the requested offset value in a search
	FldOffset = "offset"
	// FldLimit is the requested result limit in a search
	FldLimit = "limit"
	// FldFile is the name of the log field containing a file name
	FldFile = "file"
	// FldOperation is the name of the service operation handling a request
	FldOperation = "op"
	// FldDuration is the time a service operation took to complete
	FldDuration = "took"
)
