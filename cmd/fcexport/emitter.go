package main

import (
	"context"
	"fmt"

	"fcexport/internal/service"
)

// logEmitter surfaces service status events on the terminal.
type logEmitter struct{}

var _ service.EventEmitter = logEmitter{}

func (logEmitter) Emit(_ context.Context, event string, data any) {
	if event == service.EventStatus {
		fmt.Println(data)
		return
	}
	log.WithField("data", data).Debug(event)
}
