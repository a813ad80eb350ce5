package diagnostics

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics(t *testing.T) {
	var ds Diagnostics
	ds.Warnf("system/package/os/org.example.App", "dropped invalid component: %s", "no name")
	ds.Infof("", "nothing to write")
	ds.Errorf("cache.gvz", "bad tag %d", 9)

	require.Len(t, ds, 3)
	assert.Equal(t, 1, ds.Count(SeverityWarning))
	assert.Equal(t, 1, ds.Count(SeverityInfo))
	assert.Equal(t, 1, ds.Count(SeverityError))
	assert.Equal(t, "warning: system/package/os/org.example.App: dropped invalid component: no name", ds[0].String())
	assert.Equal(t, "info: nothing to write", ds[1].String())

	var other Diagnostics
	other.Extend(ds)
	assert.Equal(t, ds, other)
}

func TestDiagnosticsLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	ds := Diagnostics{{Severity: SeverityWarning, Subject: "a", Message: "b"}}
	ds.Log(&logger)

	assert.Contains(t, buf.String(), `"subject":"a"`)
	assert.Contains(t, buf.String(), `"message":"b"`)

	assert.NotPanics(t, func() { ds.Log(nil) })
}
