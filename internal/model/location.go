package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"FieldForce/pkg/errors"
)

const (
	GeoJSONPoint     = "Point"
	maxAddressLength = 512
)

// GeoPoint GeoJSON Point，坐标顺序固定为 [longitude, latitude]
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address,omitempty"`
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }

func (p GeoPoint) Latitude() float64 { return p.Coordinates[1] }

// LocationInput 客户端上报的原始位置，coordinates 保持未解析状态，交给 NormalizeLocation 校验
type LocationInput struct {
	Coordinates []interface{} `json:"coordinates"`
	Address     string        `json:"address,omitempty"`
}

// NormalizeLocation 校验并转换为 GeoPoint
// 规则：恰好两个有限数值，经度 [-180,180]，纬度 [-90,90]
func NormalizeLocation(in *LocationInput) (GeoPoint, error) {
	if in == nil || in.Coordinates == nil {
		return GeoPoint{}, errors.InvalidLocation.WithMessage("Valid location with coordinates is required")
	}

	if len(in.Coordinates) != 2 {
		return GeoPoint{}, errors.InvalidLocation.WithMessage(
			fmt.Sprintf("location.coordinates must contain exactly 2 numbers [longitude, latitude], got %d", len(in.Coordinates)))
	}

	lng, ok := toFloat(in.Coordinates[0])
	if !ok {
		return GeoPoint{}, errors.InvalidLocation.WithMessage("longitude must be a finite number")
	}
	lat, ok := toFloat(in.Coordinates[1])
	if !ok {
		return GeoPoint{}, errors.InvalidLocation.WithMessage("latitude must be a finite number")
	}

	if lng < -180 || lng > 180 {
		return GeoPoint{}, errors.InvalidLocation.WithMessage("longitude must be between -180 and 180")
	}
	if lat < -90 || lat > 90 {
		// 常见错误：客户端按 [lat, lng] 上报
		if math.Abs(lng) <= 90 && math.Abs(lat) <= 180 {
			return GeoPoint{}, errors.InvalidLocation
		}
		return GeoPoint{}, errors.InvalidLocation.WithMessage("latitude must be between -90 and 90")
	}

	address := strings.TrimSpace(in.Address)
	if utf8.RuneCountInString(address) > maxAddressLength {
		return GeoPoint{}, errors.InvalidLocation.WithMessage(
			fmt.Sprintf("location.address cannot exceed %d characters", maxAddressLength))
	}

	return GeoPoint{
		Type:        GeoJSONPoint,
		Coordinates: [2]float64{lng, lat},
		Address:     address,
	}, nil
}

// toFloat 只接受 JSON 数值，字符串形式的数字视为非法
func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
