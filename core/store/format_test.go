package store

import (
	"testing"

	"github.com/siherrmann/arkg/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializationLookup(t *testing.T) {
	for _, serialization := range Serializations {
		t.Run(serialization.Name, func(t *testing.T) {
			byName, err := SerializationByName(serialization.Name)
			require.NoError(t, err)
			assert.Equal(t, serialization, byName)

			byContentType, err := SerializationByContentType(serialization.ContentType + "; charset=utf-8")
			require.NoError(t, err)
			assert.Equal(t, serialization, byContentType)

			byExtension, err := SerializationByExtension("output/arkg" + serialization.Extension)
			require.NoError(t, err)
			assert.Equal(t, serialization, byExtension)

			for _, s := range []string{serialization.Name, serialization.ContentType, serialization.Extension} {
				looked, err := LookupSerialization(s)
				require.NoError(t, err)
				assert.Equal(t, serialization, looked)
			}
		})
	}

	t.Run("Aliases", func(t *testing.T) {
		turtle, err := SerializationByContentType("application/turtle")
		require.NoError(t, err)
		assert.Equal(t, Turtle, turtle)

		rdfXML, err := SerializationByContentType("application/xml")
		require.NoError(t, err)
		assert.Equal(t, RDFXML, rdfXML)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := SerializationByContentType("application/ld+json")
		assert.ErrorIs(t, err, helper.ErrSerialization)

		_, err = SerializationByName("json_ld")
		assert.ErrorIs(t, err, helper.ErrSerialization)

		_, err = SerializationByExtension("arkg.jsonld")
		assert.ErrorIs(t, err, helper.ErrSerialization)
	})
}

func TestSerializationFileName(t *testing.T) {
	assert.Equal(t, "arkg.ttl", Turtle.FileName("arkg"))
	assert.Equal(t, "arkg.nq", NQuads.FileName("arkg.ttl"))
}
