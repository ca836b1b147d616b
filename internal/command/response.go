package command

import (
	"fmt"

	"github.com/google/uuid"
)

type Status int

const (
	Ok Status = iota + 1
	Failed
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ok":
		*s = Ok
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Response answers exactly one request. ID is the request's ID.
type Response struct {
	ID     uuid.UUID
	Status Status
	Data   any
	Error  string
}

func OK(data any) Response { return Response{Status: Ok, Data: data} }

func Fail(err error) Response {
	if err == nil {
		return Response{Status: Failed, Error: "unknown error"}
	}
	return Response{Status: Failed, Error: err.Error()}
}

func (r Response) Err() error {
	if r.Status == Ok {
		return nil
	}
	return fmt.Errorf("command failed: %s", r.Error)
}
