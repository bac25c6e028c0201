// Package fanout pushes the latest aggregate snapshot to every live
// subscriber of a topic. Delivery is best-effort and at-most-once per
// push; a dropped push is recovered by the next push on the same topic.
package fanout

import "fmt"

// Bus is the injected push transport. Implementations must never block a
// state transition on delivery.
type Bus interface {
	Publish(topic string, payload any) error
}

// Topic keys are built from the entity's natural identifier.

func PhasesTopic(projectID int) string {
	return fmt.Sprintf("phases-%d", projectID)
}

func CategoriesTopic(phaseID int) string {
	return fmt.Sprintf("categories-%d", phaseID)
}

func PitchingsTopic(projectID int) string {
	return fmt.Sprintf("pitchings-%d", projectID)
}

func NotificationsTopic(receiverEmail string) string {
	return fmt.Sprintf("notifications-%s", receiverEmail)
}
