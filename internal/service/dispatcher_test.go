package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/internal/transition"
	"collabhub/pkg/rbac"
)

func seedNotification(t *testing.T, e *env, typ string) *model.Notification {
	t.Helper()
	receiver := model.User{ID: 100, Email: "leader@uni.edu"}
	require.NoError(t, e.notifier.Notify(context.Background(), 0, receiver, typ, "content"))
	return e.notifs.rows[len(e.notifs.rows)-1]
}

func TestDispatchPendingDelivers(t *testing.T) {
	e := newEnv()
	dispatcher := NewDispatcher(e.notifier, &fakeDeadLetter{}, zap.NewNop())

	n := seedNotification(t, e, model.NotificationPhaseDone)
	require.NoError(t, dispatcher.DispatchPending(context.Background()))

	stored, _ := e.notifs.GetByID(context.Background(), n.ID)
	assert.True(t, stored.Dispatched)
	assert.Contains(t, e.bus.topics(), fanout.NotificationsTopic("leader@uni.edu"))

	// A delivered row is not picked up again.
	before := len(e.bus.pushes)
	require.NoError(t, dispatcher.DispatchPending(context.Background()))
	assert.Len(t, e.bus.pushes, before)
}

func TestDispatchWarningSendsSupportEmail(t *testing.T) {
	e := newEnv()
	dispatcher := NewDispatcher(e.notifier, &fakeDeadLetter{}, zap.NewNop())

	seedNotification(t, e, model.NotificationPhaseWarning)
	require.NoError(t, dispatcher.DispatchPending(context.Background()))

	assert.Equal(t, []string{"leader@uni.edu"}, e.mailer.support)
}

func TestDispatchRetriesAndDeadLetters(t *testing.T) {
	e := newEnv()
	e.bus.failTopics = map[string]bool{fanout.NotificationsTopic("leader@uni.edu"): true}
	dead := &fakeDeadLetter{}
	dispatcher := NewDispatcher(e.notifier, dead, zap.NewNop())

	n := seedNotification(t, e, model.NotificationPhaseDone)

	// Budget is five attempts, then the row is parked.
	for i := 0; i < 5; i++ {
		require.NoError(t, dispatcher.DispatchPending(context.Background()))
	}

	stored, _ := e.notifs.GetByID(context.Background(), n.ID)
	assert.False(t, stored.Dispatched)
	assert.Equal(t, 5, stored.RetryCount)
	assert.Equal(t, []string{fanout.NotificationsTopic("leader@uni.edu")}, dead.parked)

	// Exhausted rows drop out of the batch.
	require.NoError(t, dispatcher.DispatchPending(context.Background()))
	assert.Len(t, dead.parked, 1)
}

func TestClaimedRowIsInvisibleToSecondPoller(t *testing.T) {
	e := newEnv()
	seedNotification(t, e, model.NotificationPhaseDone)

	first, err := e.notifs.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The server and the sweeper each run a dispatcher over the same
	// table. A second poller arriving between claim and delivery sees
	// nothing: the claim and the dispatched flag are one atomic step.
	second, err := e.notifs.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, second)

	// A failed delivery returns the row for the next cycle.
	_, err = e.notifs.MarkDispatchFailed(context.Background(), first[0].ID)
	require.NoError(t, err)
	again, err := e.notifs.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestMarkReadPushesUnreadCount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first := seedNotification(t, e, model.NotificationPhaseDone)
	seedNotification(t, e, model.NotificationPhaseDone)

	require.NoError(t, e.notifier.MarkRead(ctx, first.ID, e.leader))

	stored, _ := e.notifs.GetByID(ctx, first.ID)
	assert.False(t, stored.IsNew)

	topic := fanout.NotificationsTopic("leader@uni.edu")
	var last push
	for _, p := range e.bus.pushes {
		if p.topic == topic {
			last = p
		}
	}
	require.NotNil(t, last.payload)
	assert.Equal(t, map[string]any{"unread": 1}, last.payload)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	e := newEnv()
	err := e.notifier.MarkRead(context.Background(), 404, e.leader)
	assert.Error(t, err)
}

func TestMarkReadForeignNotification(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	n := seedNotification(t, e, model.NotificationPhaseDone) // receiver is user 100

	// Another user cannot flip someone else's read flag.
	err := e.notifier.MarkRead(ctx, n.ID, e.business)
	assert.Equal(t, transition.KindForbidden, transition.KindOf(err))

	stored, _ := e.notifs.GetByID(ctx, n.ID)
	assert.True(t, stored.IsNew)

	// Admins may.
	admin := model.Principal{UserID: 1, Role: rbac.RoleAdmin}
	require.NoError(t, e.notifier.MarkRead(ctx, n.ID, admin))
}
