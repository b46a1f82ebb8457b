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

func candidateNames(cs []match.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestEndToEnd_PowerLink(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "B", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"PW1", "PW2"}, portNames(t, w.db, devA))
	assert.Equal(t, []string{"PW1", "PW2"}, portNames(t, w.db, devB))

	before, err := w.st.FindCandidates(ctx, w.project.ID, devA, devB)
	require.NoError(t, err)
	assert.Equal(t, []string{"PW1", "PW2"}, candidateNames(before.Left))
	assert.Equal(t, []string{"PW1", "PW2"}, candidateNames(before.Right))

	linkID, err := w.st.CreateLink(ctx, w.project.ID, portByName(t, w.db, devA, "PW1").ID, portByName(t, w.db, devB, "PW1").ID)
	require.NoError(t, err)
	assert.NotZero(t, linkID)

	after, err := w.st.FindCandidates(ctx, w.project.ID, devA, devB)
	require.NoError(t, err)
	assert.Equal(t, []string{"PW2"}, candidateNames(after.Left))
	assert.Equal(t, []string{"PW2"}, candidateNames(after.Right))

	links, err := w.st.ListLinks(ctx, w.project.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, devA, links[0].ADeviceID)
	assert.Equal(t, devB, links[0].BDeviceID)
	assert.Equal(t, model.LinkStatusConnected, links[0].Status)
	assert.Less(t, links[0].PortLowID, links[0].PortHighID)
}

func TestCreateLink_Validation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	rj45 := seedPortType(t, w.db, "RJ45", "RJ45")

	mixed := seedTemplate(t, w.db, "Mixed",
		model.PortTemplateRule{Code: "PW", Quantity: 1, PortTypeID: &w.power.ID},
		model.PortTemplateRule{Code: "ETH", Quantity: 1, PortTypeID: &rj45.ID},
		model.PortTemplateRule{Code: "UPS", DisplayName: "UPS feed", Quantity: 1, PortTypeID: &w.power.ID},
		model.PortTemplateRule{Code: "BUS", Quantity: 1, PortTypeID: &w.power.ID, MaxLinks: 2},
	)

	devA, err := w.st.CreateDevice(ctx, w.project.ID, mixed.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, mixed.ID, "B", "")
	require.NoError(t, err)
	devC, err := w.st.CreateDevice(ctx, w.project.ID, mixed.ID, "C", "")
	require.NoError(t, err)
	devD, err := w.st.CreateDevice(ctx, w.project.ID, mixed.ID, "D", "")
	require.NoError(t, err)

	otherProject := seedProject(t, w.db, "P2")
	devX, err := w.st.CreateDevice(ctx, otherProject.ID, mixed.ID, "X", "")
	require.NoError(t, err)

	port := func(dev int64, name string) int64 { return portByName(t, w.db, dev, name).ID }

	// A.PW1 <-> B.PW1 exists before the table runs.
	_, err = w.st.CreateLink(ctx, w.project.ID, port(devA, "PW1"), port(devB, "PW1"))
	require.NoError(t, err)

	// C.PW1 gets a child and becomes structural.
	_, err = w.st.CreateChildPort(ctx, devC, port(devC, "PW1"), "PW1.1")
	require.NoError(t, err)

	// D.ETH1 is switched off.
	require.NoError(t, w.st.SetPortActive(ctx, w.project.ID, port(devD, "ETH1"), false))

	testCases := []struct {
		name     string
		a, b     int64
		expected error
	}{
		{"Self link", port(devA, "ETH1"), port(devA, "ETH1"), ErrSelfLink},
		{"Unknown port", port(devA, "ETH1"), 99999, ErrPortNotFound},
		{"Other project", port(devA, "ETH1"), port(devX, "ETH1"), ErrProjectMismatch},
		{"Same device", port(devA, "PW1"), port(devA, "UPS1"), ErrSameDevice},
		{"Structural port", port(devC, "PW1"), port(devD, "PW1"), ErrStructuralPort},
		{"Duplicate pair", port(devA, "PW1"), port(devB, "PW1"), ErrAlreadyLinked},
		{"Duplicate pair reversed", port(devB, "PW1"), port(devA, "PW1"), ErrAlreadyLinked},
		{"Inactive port", port(devC, "ETH1"), port(devD, "ETH1"), ErrPortInactive},
		{"Port at capacity", port(devA, "PW1"), port(devC, "PW1.1"), ErrCapacityExceeded},
		{"Type mismatch", port(devC, "ETH1"), port(devD, "BUS1"), ErrTypeMismatch},
		{"Rule mismatch", port(devC, "UPS1"), port(devD, "PW1"), ErrRuleMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := w.st.CreateLink(ctx, w.project.ID, tc.a, tc.b)
			assert.True(t, errors.Is(err, tc.expected), "got %v", err)
			assert.Zero(t, id)
		})
	}

	links, err := w.st.ListLinks(ctx, w.project.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1, "failed attempts must not write")

	t.Run("Multi-link capacity", func(t *testing.T) {
		_, err := w.st.CreateLink(ctx, w.project.ID, port(devA, "BUS1"), port(devB, "BUS1"))
		require.NoError(t, err)
		_, err = w.st.CreateLink(ctx, w.project.ID, port(devA, "BUS1"), port(devC, "BUS1"))
		require.NoError(t, err)
		_, err = w.st.CreateLink(ctx, w.project.ID, port(devA, "BUS1"), port(devD, "BUS1"))
		assert.True(t, errors.Is(err, ErrCapacityExceeded))

		var n int64
		w.db.Model(&model.Link{}).Where("a_port_id = ? OR b_port_id = ?", port(devA, "BUS1"), port(devA, "BUS1")).Count(&n)
		assert.Equal(t, int64(2), n)
	})
}

func TestCreateLink_Direction(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	attr, from, to := seedDirection(t, w.db)

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "B", "")
	require.NoError(t, err)

	a1, a2 := portByName(t, w.db, devA, "PW1"), portByName(t, w.db, devA, "PW2")
	b1, b2 := portByName(t, w.db, devB, "PW1"), portByName(t, w.db, devB, "PW2")
	setPortOption(t, w.db, a1.ID, attr.ID, from.ID)
	setPortOption(t, w.db, a2.ID, attr.ID, from.ID)
	setPortOption(t, w.db, b1.ID, attr.ID, to.ID)
	// b2 has a text value instead of an option.
	require.NoError(t, w.db.Create(&model.PortAttrValue{PortID: b2.ID, AttributeID: attr.ID, ValueText: ptr(" from ")}).Error)

	cands, err := w.st.FindCandidates(ctx, w.project.ID, devA, devB)
	require.NoError(t, err)
	assert.Equal(t, []string{"PW1", "PW2"}, candidateNames(cands.Left))
	assert.Equal(t, []string{"PW1"}, candidateNames(cands.Right))

	_, err = w.st.CreateLink(ctx, w.project.ID, a2.ID, b2.ID)
	assert.True(t, errors.Is(err, ErrDirectionInvalid), "FROM/FROM must fail")

	_, err = w.st.CreateLink(ctx, w.project.ID, b1.ID, a1.ID)
	assert.NoError(t, err, "TO/FROM is complementary in either order")

	t.Run("Missing direction fails", func(t *testing.T) {
		devC, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "C", "")
		require.NoError(t, err)
		_, err = w.st.CreateLink(ctx, w.project.ID, a2.ID, portByName(t, w.db, devC, "PW1").ID)
		assert.True(t, errors.Is(err, ErrDirectionInvalid))
	})

	t.Run("Disabled direction attribute code", func(t *testing.T) {
		st := NewGormStore(w.db, WithDirectionAttribute(""))
		_, err := st.CreateLink(ctx, w.project.ID, a2.ID, b2.ID)
		assert.NoError(t, err)
	})
}

func TestFindCandidates_EdgeCases(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)

	same, err := w.st.FindCandidates(ctx, w.project.ID, devA, devA)
	require.NoError(t, err)
	assert.Empty(t, same.Left)
	assert.Empty(t, same.Right)
	assert.NotNil(t, same.Left)

	missing, err := w.st.FindCandidates(ctx, w.project.ID, devA, 999)
	require.NoError(t, err)
	assert.Empty(t, missing.Left)
	assert.Empty(t, missing.Right)
}

func TestDeleteLink_ProjectScoped(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	devA, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "A", "")
	require.NoError(t, err)
	devB, err := w.st.CreateDevice(ctx, w.project.ID, w.tpl.ID, "B", "")
	require.NoError(t, err)
	linkID, err := w.st.CreateLink(ctx, w.project.ID, portByName(t, w.db, devA, "PW1").ID, portByName(t, w.db, devB, "PW1").ID)
	require.NoError(t, err)

	ok, err := w.st.DeleteLink(ctx, w.project.ID+1, linkID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.st.DeleteLink(ctx, w.project.ID, linkID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.st.DeleteLink(ctx, w.project.ID, linkID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Capacity is released.
	_, err = w.st.CreateLink(ctx, w.project.ID, portByName(t, w.db, devA, "PW1").ID, portByName(t, w.db, devB, "PW1").ID)
	assert.NoError(t, err)
}
