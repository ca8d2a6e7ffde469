package tlmt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/tlmt"
	"github.com/coffeed/coffeed-admin/tlmt/gonoop"
)

func TestNewEvent(t *testing.T) {
	first := tlmt.NewEvent("place_import", map[string]any{"strategy": "ftid"})
	second := tlmt.NewEvent("place_import", map[string]any{"outcome": "ok"})

	require.Equal(t, "place_import", first.Name)
	require.Len(t, first.AnonymousID, 64)
	require.Equal(t, first.AnonymousID, second.AnonymousID)

	require.Equal(t, "ftid", first.Properties["strategy"])
	require.NotContains(t, second.Properties, "strategy")
	require.Equal(t, "ok", second.Properties["outcome"])
}

func TestNoop(t *testing.T) {
	tel := gonoop.New()

	require.NoError(t, tel.Send(context.Background(), tlmt.NewEvent("x", nil)))
	require.NoError(t, tel.Close())
}
