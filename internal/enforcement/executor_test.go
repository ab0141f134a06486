package enforcement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/filter-bot/internal/models"
	"go.uber.org/zap"
)

type fakeGateway struct {
	deleteErr error
	banErr    error
	calls     []string
}

func (g *fakeGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	g.calls = append(g.calls, "delete")
	return g.deleteErr
}

func (g *fakeGateway) BanMember(ctx context.Context, chatID int64, memberID int64) error {
	g.calls = append(g.calls, "ban")
	return g.banErr
}

func TestEnforce(t *testing.T) {
	errNotAdmin := errors.New("Bad Request: not enough rights")

	tests := []struct {
		name      string
		deleteOn  bool
		banOn     bool
		deleteErr error
		banErr    error
		calls     []string
		action    models.Action
		complete  bool
	}{
		{"both succeed", true, true, nil, nil, []string{"delete", "ban"}, models.ActionBoth, true},
		{"ban fails", true, true, nil, errNotAdmin, []string{"delete", "ban"}, models.ActionMessageDeleted, false},
		{"delete fails ban still attempted", true, true, errNotAdmin, nil, []string{"delete", "ban"}, models.ActionMemberBanned, false},
		{"both fail", true, true, errNotAdmin, errNotAdmin, []string{"delete", "ban"}, models.ActionNone, false},
		{"ban only", false, true, nil, nil, []string{"ban"}, models.ActionMemberBanned, true},
		{"delete only", true, false, nil, nil, []string{"delete"}, models.ActionMessageDeleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{deleteErr: tt.deleteErr, banErr: tt.banErr}
			ex := NewExecutor(gw, tt.deleteOn, tt.banOn, zap.NewNop())

			outcome := ex.Enforce(context.Background(), -100, 42, 7)

			assert.Equal(t, tt.calls, gw.calls)
			assert.Equal(t, tt.action, outcome.Action())
			assert.Equal(t, tt.complete, outcome.Complete())
			assert.False(t, outcome.Skipped)
			if tt.complete {
				assert.NoError(t, Err(outcome))
			} else {
				err := Err(outcome)
				var ee *EnforcementError
				assert.ErrorAs(t, err, &ee)
				assert.ErrorIs(t, err, errNotAdmin)
			}
		})
	}
}

func TestEnforceDisabled(t *testing.T) {
	gw := &fakeGateway{}
	ex := NewExecutor(gw, false, false, zap.NewNop())

	assert.False(t, ex.Enabled())
	outcome := ex.Enforce(context.Background(), -100, 42, 7)
	assert.True(t, outcome.Skipped)
	assert.Empty(t, gw.calls)
	assert.Equal(t, models.ActionNone, outcome.Action())
}
