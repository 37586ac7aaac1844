package characteristic

import (
	"testing"

	"github.com/ivucica/go-hap/accessory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogBuildsKnownCharacteristic(t *testing.T) {
	c, err := New("CurrentAmbientLightLevel")
	require.NoError(t, err)
	assert.Equal(t, accessory.FormatFloat, c.Format)
	assert.Equal(t, 0.0001, c.Value())
	require.NotNil(t, c.MinValue)
	assert.Equal(t, 0.0001, *c.MinValue)
}

func TestCatalogRejectsUnknownName(t *testing.T) {
	_, err := New("NotARealCharacteristic")
	assert.Error(t, err)
}

func TestCatalogEntriesAreIndependent(t *testing.T) {
	a, err := New("On")
	require.NoError(t, err)
	b, err := New("On")
	require.NoError(t, err)

	require.NoError(t, a.SetValue(true))
	assert.Equal(t, false, b.Value())
}

func TestNewServiceBuildsKnownService(t *testing.T) {
	svc, err := NewService("Lightbulb")
	require.NoError(t, err)
	assert.Equal(t, accessory.NewBaseTypeID("43"), svc.Type)
}

func TestNewServiceRejectsUnknownName(t *testing.T) {
	_, err := NewService("NotARealService")
	assert.Error(t, err)
}

func TestNamedConstructorMatchesCatalog(t *testing.T) {
	named := NewCurrentAmbientLightLevel()
	cataloged, err := New("CurrentAmbientLightLevel")
	require.NoError(t, err)
	assert.Equal(t, named.Type, cataloged.Type)
	assert.Equal(t, named.Format, cataloged.Format)
}
