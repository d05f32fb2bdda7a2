package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a handler that ships records to a Graylog input
// at address over UDP. The returned closer releases the connection.
func NewGELFHandler(address, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to graylog at %s: %w", address, err)
	}
	w.Facility = "routekit"

	return slog.NewJSONHandler(w, handlerOptions(level)), w, nil
}
