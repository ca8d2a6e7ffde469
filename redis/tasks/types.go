package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeImportPlace = "import:place"
	TypeHealthCheck = "health:check"
)

// QueueImports is the queue import tasks are enqueued on.
const QueueImports = "imports"

// ImportPayload is the payload of an import:place task.
type ImportPayload struct {
	URL         string `json:"url"`
	Persist     bool   `json:"persist"`
	RequestedBy string `json:"requested_by,omitempty"`
}

func (p ImportPayload) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("url is required")
	}

	return nil
}

// NewImportTask builds an import:place task.
func NewImportTask(p ImportPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import payload: %w", err)
	}

	return asynq.NewTask(TypeImportPlace, data, opts...), nil
}
