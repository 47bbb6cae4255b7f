package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// ErrorBody is the JSON shape of every error response: {"error": "..."}.
type ErrorBody struct {
	Status  int      `json:"-"`
	Message string   `json:"error" doc:"Human readable error message"`
	Details []string `json:"details,omitempty" doc:"Schema validation failures"`
}

func (e *ErrorBody) Error() string {
	return e.Message
}

func (e *ErrorBody) GetStatus() int {
	return e.Status
}

// newError reports request schema failures as 400 like every other client error.
func newError(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}
	body := &ErrorBody{Status: status, Message: msg}
	for _, err := range errs {
		if err != nil {
			body.Details = append(body.Details, err.Error())
		}
	}
	return body
}
