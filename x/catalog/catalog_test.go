package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/wlscanner/metrics"
	"github.com/compose-network/wlscanner/x/generator"
	"github.com/compose-network/wlscanner/x/validator"
)

func manifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := LoadManifest(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	return m
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	m := manifest(t)
	assert.Equal(t, "testdata", m.BaseDir)
	require.Len(t, m.Collections, 5)
	assert.Equal(t, []string{"core.xml"}, m.Imports)

	ddm, err := m.Collection("ddm")
	require.NoError(t, err)
	assert.False(t, ddm.Enabled())
	assert.Equal(t, filepath.Join("testdata", "ddm.xml"), m.resolve(ddm.Documents[0]))
}

func TestCompileSkipsDisabledCollections(t *testing.T) {
	t.Parallel()

	res, err := New(manifest(t), WithConcurrency(2)).Compile(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.Len(t, res.Collections, 5)
	require.Len(t, res.Imports, 1)

	for name, status := range map[string]string{
		"core":        StatusCompiled,
		"tools":       StatusCompiled,
		"broken":      StatusFailed,
		"ddm":         StatusSkipped,
		"screensaver": StatusSkipped,
	} {
		r := res.Collection(name)
		require.NotNil(t, r, name)
		assert.Equal(t, status, r.Status(), name)
	}
	assert.Equal(t, "upstream description is structurally defective", res.Collection("ddm").Reason)
	assert.Empty(t, res.Collection("ddm").Protocols)

	var verrs *validator.Errors
	require.True(t, errors.As(res.Collection("broken").Err, &verrs))
	require.Len(t, verrs.List, 1)
	assert.Equal(t, validator.RuleUnresolvedEnum, verrs.List[0].Rule)

	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "collection broken")

	protos := res.Protocols()
	require.Len(t, protos, 2)
	assert.Equal(t, "core", protos[0].Name)
	assert.Equal(t, "tools", protos[1].Name)
}

func TestToolsNeedTheImport(t *testing.T) {
	t.Parallel()

	m := manifest(t)
	m.Imports = nil
	selected, err := m.Select("tools")
	require.NoError(t, err)

	res, err := New(selected).Compile(context.Background())
	require.NoError(t, err)
	r := res.Collection("tools")
	require.NotNil(t, r)
	var verrs *validator.Errors
	require.True(t, errors.As(r.Err, &verrs))
	assert.Len(t, verrs.Find(validator.RuleUnresolvedInterface), 1)
	assert.Len(t, verrs.Find(validator.RuleUnresolvedEnum), 1)
}

func TestCompileGeneratesAndWrites(t *testing.T) {
	t.Parallel()

	g, err := generator.New(generator.Config{ImportPath: "example.com/out"}, zerolog.Nop())
	require.NoError(t, err)
	selected, err := manifest(t).Select("core", "tools")
	require.NoError(t, err)

	res, err := New(selected, WithGenerator(g)).Compile(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())

	tools := res.Collection("tools")
	require.Len(t, tools.Outputs, 1)
	assert.Equal(t, "example.com/out/tools", tools.Outputs[0].Package)

	dir := t.TempDir()
	written, err := res.Write(dir)
	require.NoError(t, err)
	assert.Len(t, written, 6)

	src, err := os.ReadFile(filepath.Join(dir, "tools", "client", "client.go"))
	require.NoError(t, err)
	// core_surface lives in another document, so the handle is untyped.
	assert.Contains(t, string(src), "func (o *Tool) Apply(target *session.Object) error {")
	assert.Contains(t, string(src), "RoleChanged(o *Tool, role uint32) error")
}

func TestCompileMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetricsWith(metrics.NewComponentRegistryWith(prometheus.NewRegistry(), "wlscanner", "catalog"))
	_, err := New(manifest(t), WithMetrics(m)).Compile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CollectionsTotal.WithLabelValues(StatusSkipped)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CollectionsTotal.WithLabelValues(StatusCompiled)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CollectionsTotal.WithLabelValues(StatusFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("import", StatusCompiled)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("collection", StatusCompiled)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LastRunCollections.WithLabelValues(StatusFailed)))
	assert.Positive(t, testutil.ToFloat64(m.LastRunTimestamp))
}

func TestBrokenImportAbortsRun(t *testing.T) {
	t.Parallel()

	m := manifest(t)
	m.Imports = []string{"missing.xml"}
	_, err := New(m).Compile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import missing.xml")
}

func TestCompileCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(manifest(t)).Compile(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestManifestValidation(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		doc  string
		want error
	}{
		"empty":        {doc: "base_dir: .\ncollections: []\n", want: ErrNoCollections},
		"duplicate":    {doc: "collections:\n  - {name: a, documents: [a.xml]}\n  - {name: a, documents: [b.xml]}\n", want: ErrDuplicateName},
		"nameless":     {doc: "collections:\n  - {documents: [a.xml]}\n", want: ErrMissingName},
		"no documents": {doc: "collections:\n  - {name: a}\n", want: ErrNoDocuments},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseManifest([]byte(tc.doc))
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := ParseManifest([]byte("collections:\n  - {name: a, documents: [a.xml], path: x}\n"))
	require.Error(t, err)

	_, err = ParseManifest([]byte("collections:\n  - {name: a, disabled: broken upstream}\n"))
	require.NoError(t, err)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	m := manifest(t)
	_, err := m.Select("screensaver")
	require.ErrorIs(t, err, ErrCollectionDisabled)
	_, err = m.Select("nope")
	require.ErrorIs(t, err, ErrUnknownCollection)

	all, err := m.Select()
	require.NoError(t, err)
	assert.Same(t, m, all)

	one, err := m.Select("tools", "core")
	require.NoError(t, err)
	require.Len(t, one.Collections, 2)
	assert.Equal(t, "core", one.Collections[0].Name)
	assert.Len(t, m.Collections, 5)
}
