package reporting

import (
	"testing"
	"time"

	"procurement-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhere(t *testing.T) {
	assert.Equal(t, "", where(nil))
	assert.Equal(t, " WHERE a = 1 AND b = 2", where([]string{"a = 1", "b = 2"}))
}

func TestMovementConditions(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	conds, args, err := movementConditions(MovementFilter{Type: core.MovementExit, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"m.type = :type", "m.occurred_at >= :from", "m.occurred_at <= :to"}, conds)
	assert.Equal(t, core.MovementExit, args["type"])
	assert.Equal(t, from, args["from"])

	_, _, err = movementConditions(MovementFilter{Type: "transfer"})
	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, _, err = movementConditions(MovementFilter{From: &to, To: &from})
	assert.ErrorAs(t, err, &ve)
}
