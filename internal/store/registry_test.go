package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portlink-backend/internal/match"
	"portlink-backend/internal/model"
)

func TestListDevicePorts(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	attr, from, to := seedDirection(t, w.db)

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "B", "")
	require.NoError(t, err)

	a1 := portByName(t, w.db, devA, "PW1")
	b2 := portByName(t, w.db, devB, "PW2")
	setPortOption(t, w.db, a1.ID, attr.ID, from.ID)
	setPortOption(t, w.db, b2.ID, attr.ID, to.ID)
	linkID, err := w.st.CreateLink(ctx, w.project.ID, a1.ID, b2.ID)
	require.NoError(t, err)
	_, err = w.st.CreateChildPort(ctx, devA, portByName(t, w.db, devA, "PW2").ID, "PW2.1")
	require.NoError(t, err)

	views, err := w.st.ListDevicePorts(ctx, w.project.ID, devA)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "PW1", views[0].Name)
	assert.Equal(t, match.DirectionFrom, views[0].Direction)
	assert.Equal(t, 1, views[0].LinkCount)
	assert.Equal(t, "Power", views[0].PortTypeName)
	assert.False(t, views[0].Available)
	require.Len(t, views[0].Links, 1)
	assert.Equal(t, PortLink{
		LinkID: linkID, OtherDeviceID: devB, OtherDeviceName: "B", OtherPortID: b2.ID, OtherPortName: "PW2",
	}, views[0].Links[0])

	assert.Equal(t, "PW2", views[1].Name)
	assert.Equal(t, 1, views[1].ChildCount)
	assert.False(t, views[1].Available, "structural ports are not available")
	assert.Empty(t, views[1].Links)

	assert.Equal(t, "PW2.1", views[2].Name)
	require.NotNil(t, views[2].ParentID)
	assert.Equal(t, views[1].PortID, *views[2].ParentID)
	assert.True(t, views[2].Available)

	t.Run("Foreign project yields empty list", func(t *testing.T) {
		views, err := w.st.ListDevicePorts(ctx, w.project.ID+1, devA)
		require.NoError(t, err)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})
}

func TestSetPortActive(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "B", "")
	require.NoError(t, err)

	parent := portByName(t, w.db, devA, "PW2")
	c1, err := w.st.CreateChildPort(ctx, devA, parent.ID, "PW2.1")
	require.NoError(t, err)
	c2, err := w.st.CreateChildPort(ctx, devA, parent.ID, "PW2.2")
	require.NoError(t, err)

	active := func(id int64) bool {
		var p model.Port
		require.NoError(t, w.db.First(&p, id).Error)
		return p.IsActive
	}

	t.Run("Deactivation cascades to descendants", func(t *testing.T) {
		require.NoError(t, w.st.SetPortActive(ctx, w.project.ID, parent.ID, false))
		assert.False(t, active(parent.ID))
		assert.False(t, active(c1))
		assert.False(t, active(c2))
	})

	t.Run("Activation is not cascaded", func(t *testing.T) {
		require.NoError(t, w.st.SetPortActive(ctx, w.project.ID, parent.ID, true))
		assert.True(t, active(parent.ID))
		assert.False(t, active(c1))
		assert.False(t, active(c2))
	})

	t.Run("Linked port cannot be deactivated", func(t *testing.T) {
		pw1 := portByName(t, w.db, devA, "PW1")
		_, err := w.st.CreateLink(ctx, w.project.ID, pw1.ID, portByName(t, w.db, devB, "PW1").ID)
		require.NoError(t, err)

		err = w.st.SetPortActive(ctx, w.project.ID, pw1.ID, false)
		assert.True(t, errors.Is(err, ErrPortInUse))
		assert.True(t, active(pw1.ID))
	})

	t.Run("Port outside the project", func(t *testing.T) {
		err := w.st.SetPortActive(ctx, w.project.ID+1, parent.ID, false)
		assert.True(t, errors.Is(err, ErrPortNotFound))

		err = w.st.SetPortActive(ctx, w.project.ID, 99999, true)
		assert.True(t, errors.Is(err, ErrPortNotFound))
	})
}
