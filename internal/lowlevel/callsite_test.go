package lowlevel

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/annotations"
)

func sampleCallSites() []*CallSiteDescriptor {
	return []*CallSiteDescriptor{
		{
			ID:        0,
			Locations: []CallSiteLocation{{FileName: "A.java", ClassName: "A", MethodName: "m", LineNumber: 12}},
			Handlers: []ExceptionHandlerDescriptor{
				{ID: 1, ClassName: "java.lang.ArithmeticException"},
				{ID: 2},
			},
		},
		{
			ID: 3,
			Locations: []CallSiteLocation{
				{ClassName: "A", MethodName: "n", LineNumber: -1},
				{FileName: "B.java", ClassName: "B", MethodName: "inlined", LineNumber: 4},
			},
		},
	}
}

func TestCallSiteAnnotationsRoundTrip(t *testing.T) {
	container := annotations.NewContainer()
	SaveCallSites(sampleCallSites(), container)
	assert.Len(t, container.All(CallSiteAnnotation), 2)

	loaded, err := LoadCallSites(container)
	require.NoError(t, err)
	assert.Equal(t, sampleCallSites(), loaded)
}

func TestCallSiteYAMLRoundTrip(t *testing.T) {
	container := annotations.NewContainer()
	SaveCallSites(sampleCallSites(), container)

	path := filepath.Join(t.TempDir(), "callsites.yaml")
	require.NoError(t, container.WriteFile(path))
	read, err := annotations.ReadFile(path)
	require.NoError(t, err)

	loaded, err := LoadCallSites(read)
	require.NoError(t, err)
	assert.Equal(t, sampleCallSites(), loaded)
}

func TestLoadCallSitesRejectsMissingID(t *testing.T) {
	container := annotations.NewContainer()
	container.Add(annotations.New(CallSiteAnnotation))

	_, err := LoadCallSites(container)
	assert.Error(t, err)
}

func TestRegistryIsSafeForConcurrentMethods(t *testing.T) {
	registry := NewCallSiteRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				registry.Add(&CallSiteDescriptor{ID: registry.NewID()})
			}
		}()
	}
	wg.Wait()

	sites := registry.CallSites()
	require.Len(t, sites, 400)
	for i, site := range sites {
		assert.Equal(t, i, site.ID)
	}
}
