package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tillworks/cloudsync/internal/entities"
)

func TestFormatDetails(t *testing.T) {
	t.Run("empty details render nothing", func(t *testing.T) {
		assert.Nil(t, formatDetails(&entities.SyncJob{}))
	})

	t.Run("structured details render as sorted key value lines", func(t *testing.T) {
		job := &entities.SyncJob{Details: `{"total_rows":7,"strategy":"merge"}`}
		assert.Equal(t, []string{
			"  details:",
			"    strategy: merge",
			"    total_rows: 7",
		}, formatDetails(job))
	})

	t.Run("unstructured details render verbatim", func(t *testing.T) {
		job := &entities.SyncJob{Details: "free form note"}
		assert.Equal(t, []string{"  details:    free form note"}, formatDetails(job))
	})
}
