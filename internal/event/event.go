package event

// Envelope is the wire shape shared by socket replies, persisted
// notifications and HTTP responses.
type Envelope struct {
	ObjectType string `json:"objectType"`
	Code       int    `json:"code"`
	Status     int    `json:"status"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// Outcome categories. Unauthorized deliberately carries wire status 1
// alongside HTTP 403; clients key off the code for that case.
var (
	success      = outcome{code: 200, status: 1}
	failed       = outcome{code: 400, status: 0}
	errored      = outcome{code: 500, status: 0}
	unavailable  = outcome{code: 404, status: 0}
	unauthorized = outcome{code: 403, status: 1}
)

type outcome struct {
	code   int
	status int
}

func (o outcome) build(objectType, message string, data any) Envelope {
	return Envelope{ObjectType: objectType, Code: o.code, Status: o.status, Message: message, Data: data}
}

func Success(objectType, message string, data any) Envelope {
	return success.build(objectType, message, data)
}

func Failed(objectType, message string, data any) Envelope {
	return failed.build(objectType, message, data)
}

func Error(objectType, message string, data any) Envelope {
	return errored.build(objectType, message, data)
}

func Unavailable(objectType, message string, data any) Envelope {
	return unavailable.build(objectType, message, data)
}

func Unauthorized(objectType, message string, data any) Envelope {
	return unauthorized.build(objectType, message, data)
}
