package roster

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRoster(t *testing.T) {
	t.Parallel()

	r, err := Default()
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	all := r.All()
	require.Equal(t, "model-sarah", all[0].Slug)
	require.Equal(t, "The Muse", all[0].Title)
	require.Contains(t, string(all[0].Bio), "<strong>editorial</strong>")
	require.Equal(t, "model-aria", all[1].Tag())

	got, err := r.Find("Model-Aria")
	require.NoError(t, err)
	require.Equal(t, "Aria", got.Name)
	require.Equal(t, "w_1000,ar_3:4,c_fill,g_face,e_sharpen", got.Transform)
}

func TestFindUnknown(t *testing.T) {
	t.Parallel()

	r, err := Default()
	require.NoError(t, err)
	_, err = r.Find("model-nobody")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestParseNormalizesAndSanitizes(t *testing.T) {
	t.Parallel()

	doc := `
talent:
  - name: Lena Marie
    bio: "hello <script>alert(1)</script> [site](javascript:alert(1))"
  - slug: Model Maya
    title: Night
`
	r, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	all := r.All()
	require.Equal(t, "lena-marie", all[0].Slug)
	require.NotContains(t, string(all[0].Bio), "<script>")
	require.NotContains(t, string(all[0].Bio), "javascript:")
	require.Equal(t, "model-maya", all[1].Slug)
	require.Equal(t, "Maya", all[1].Name, "name falls back to the slug display name")
}

func TestParseRejectsDuplicatesAndUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("talent:\n  - slug: a\n  - slug: A\n"))
	require.ErrorContains(t, err, "duplicate slug")

	_, err = Parse(strings.NewReader("talent:\n  - slug: a\n    agent: x\n"))
	require.Error(t, err)

	r, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, r.Len())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("talent:\n  - slug: model-ana\n    name: Ana\n"), 0o600))
	r, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, r.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	r, err = LoadFile("")
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"model-sarah":      "Sarah",
		"model-sarah-jane": "Sarah Jane",
		"MODEL-ARIA":       "Aria",
		"beach":            "Beach",
		"":                 "",
	}
	for in, want := range cases {
		require.Equal(t, want, DisplayName(in), in)
	}
}
