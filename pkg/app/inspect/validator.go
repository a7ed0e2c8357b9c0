package inspect

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-msi/pkg/app"
)

// Validate validates a metadata request
func (r *MetadataRequest) Validate() error {
	return r.Target.Validate()
}

// Validate validates a streams request
func (r *StreamsRequest) Validate() error {
	return r.Target.Validate()
}

// Validate validates a tables request
func (r *TablesRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(r.Tables))
	for _, name := range r.Tables {
		if strings.TrimSpace(name) == "" {
			return app.NewError(app.ErrCodeInvalidInput, "table names must not be empty", nil)
		}
		if seen[name] {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("table %s named twice", name), nil)
		}
		seen[name] = true
	}
	return nil
}
