package persistence

import (
	"fmt"

	"github.com/google/uuid"
)

// generateID mints a worker-result ID, grounded on
// pkg/agent/task_service.go's generateTaskID/generateArtifactID pattern.
func generateID() string {
	return fmt.Sprintf("worker-%s", uuid.New().String())
}
