package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "phases-12", PhasesTopic(12))
	assert.Equal(t, "categories-7", CategoriesTopic(7))
	assert.Equal(t, "pitchings-3", PitchingsTopic(3))
	assert.Equal(t, "notifications-leader@uni.edu", NotificationsTopic("leader@uni.edu"))
}
