package plugin

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/mimic/pkg/config"
)

type fakePlugin struct{ name string }

func (f *fakePlugin) Name() string                    { return f.name }
func (f *fakePlugin) Routes() []config.ResourceConfig  { return nil }
func (f *fakePlugin) OnRequest(*http.Request, *config.ResourceConfig, map[string]string) error {
	return nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	Register("fake-test-plugin", func(doc config.PluginDocument) (Plugin, error) {
		return &fakePlugin{name: "fake-test-plugin"}, nil
	})

	factory, ok := Lookup("fake-test-plugin")
	require.True(t, ok)

	p, err := factory(config.PluginDocument{})
	require.NoError(t, err)
	assert.Equal(t, "fake-test-plugin", p.Name())
}

func TestRegistry_LookupMissingReturnsFalse(t *testing.T) {
	_, ok := Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestRegistry_NamesIncludesRegistered(t *testing.T) {
	Register("another-fake-plugin", func(doc config.PluginDocument) (Plugin, error) {
		return &fakePlugin{name: "another-fake-plugin"}, nil
	})
	assert.Contains(t, Names(), "another-fake-plugin")
}
