package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FieldForce/pkg/errors"
)

func TestNormalizeLocation(t *testing.T) {
	point, err := NormalizeLocation(&LocationInput{
		Coordinates: []interface{}{77.5946, 12.9716},
		Address:     "  MG Road, Bengaluru ",
	})
	require.NoError(t, err)
	assert.Equal(t, GeoJSONPoint, point.Type)
	assert.Equal(t, 77.5946, point.Longitude())
	assert.Equal(t, 12.9716, point.Latitude())
	assert.Equal(t, "MG Road, Bengaluru", point.Address)
}

func TestNormalizeLocationAcceptsDecodedJSON(t *testing.T) {
	var in LocationInput
	require.NoError(t, json.Unmarshal([]byte(`{"coordinates":[-122.4194,37.7749]}`), &in))

	point, err := NormalizeLocation(&in)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{-122.4194, 37.7749}, point.Coordinates)
}

func TestNormalizeLocationRejects(t *testing.T) {
	cases := map[string]*LocationInput{
		"missing":         nil,
		"nil coordinates": {},
		"single value":    {Coordinates: []interface{}{200.0}},
		"three values":    {Coordinates: []interface{}{1.0, 2.0, 3.0}},
		"strings":         {Coordinates: []interface{}{"a", "b"}},
		"numeric strings": {Coordinates: []interface{}{"77.1", "12.9"}},
		"longitude range": {Coordinates: []interface{}{180.5, 10.0}},
		"latitude range":  {Coordinates: []interface{}{10.0, -95.0}},
		"swapped order":   {Coordinates: []interface{}{12.9716, 120.5}},
		"not a number":    {Coordinates: []interface{}{math.NaN(), 1.0}},
		"infinite":        {Coordinates: []interface{}{1.0, math.Inf(1)}},
		"null element":    {Coordinates: []interface{}{nil, 1.0}},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeLocation(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.InvalidLocation)
			assert.Equal(t, errors.KindValidation, errors.KindOf(err))
		})
	}
}

func TestNormalizeLocationBoundaries(t *testing.T) {
	for _, c := range [][2]float64{{-180, -90}, {180, 90}, {0, 0}} {
		_, err := NormalizeLocation(&LocationInput{Coordinates: []interface{}{c[0], c[1]}})
		assert.NoError(t, err)
	}
}
