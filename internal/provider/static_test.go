package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

func TestStaticAdapter(t *testing.T) {
	t.Parallel()

	s := NewStatic("/assets/demo/", DemoShots()...)
	ctx := context.Background()

	all := s.FetchCollection(ctx, "all")
	require.Len(t, all, len(DemoShots()))
	require.Equal(t, "/assets/demo/dune-light.svg", all[0].URL)

	beach := s.FetchCollection(ctx, "Beach")
	require.Equal(t, []string{"dune-light", "tide-pool", "salt-air"}, beach.IDs())

	got, ok := s.FetchByID(ctx, "neon-hall")
	require.True(t, ok)
	require.Equal(t, "Neon hall", got.Caption)

	_, ok = s.FetchByID(ctx, "missing")
	require.False(t, ok)

	all[0].Caption = "mutated"
	again, _ := s.FetchByID(ctx, "dune-light")
	require.Equal(t, "Dune light", again.Caption, "callers receive copies")
}

func TestStaticCanceledContextIsEmpty(t *testing.T) {
	t.Parallel()

	s := NewStatic("", shot.Shot{ID: "a", URL: "/a.jpg"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, s.FetchCollection(ctx, ""))
	_, ok := s.FetchByID(ctx, "a")
	require.False(t, ok)
}

func TestValidIDAndTag(t *testing.T) {
	t.Parallel()

	require.True(t, ValidID("3f2a9c_x-1"))
	require.False(t, ValidID("a b"))
	require.False(t, ValidID("a:b"))
	require.True(t, ValidTag("model-sarah"))
	require.False(t, ValidTag("Beach"))
	require.False(t, ValidTag("x OR y"))
}
