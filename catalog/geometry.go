package catalog

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeometryExtensionName is the Arrow extension name of WKB geometry columns.
// DuckDB spatial and GeoParquet use the same name.
const GeometryExtensionName = "geoarrow.wkb"

// GeometryExtensionType implements Arrow extension type for geospatial data.
// Geometries are stored as WKB (Well-Known Binary) in Binary columns.
// Record conversion reads them back as WKT strings, so predicates compare
// geometries by their textual form.
type GeometryExtensionType struct {
	arrow.ExtensionBase
}

// NewGeometryExtensionType creates a new geometry extension type.
func NewGeometryExtensionType() *GeometryExtensionType {
	return &GeometryExtensionType{
		ExtensionBase: arrow.ExtensionBase{
			Storage: arrow.BinaryTypes.Binary,
		},
	}
}

func (g *GeometryExtensionType) ArrayType() reflect.Type {
	return reflect.TypeOf(GeometryArray{})
}

func (g *GeometryExtensionType) ExtensionName() string {
	return GeometryExtensionName
}

func (g *GeometryExtensionType) String() string {
	return "extension<" + GeometryExtensionName + ">"
}

// Serialize returns the extension metadata (empty for basic WKB).
func (g *GeometryExtensionType) Serialize() string {
	return ""
}

// Deserialize creates a geometry extension type from metadata.
func (g *GeometryExtensionType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storageType, arrow.BinaryTypes.Binary) &&
		!arrow.TypeEqual(storageType, arrow.BinaryTypes.LargeBinary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s (expected Binary or LargeBinary)", storageType)
	}
	return &GeometryExtensionType{
		ExtensionBase: arrow.ExtensionBase{Storage: storageType},
	}, nil
}

func (g *GeometryExtensionType) ExtensionEquals(other arrow.ExtensionType) bool {
	otherGeom, ok := other.(*GeometryExtensionType)
	if !ok {
		return false
	}
	return arrow.TypeEqual(g.StorageType(), otherGeom.StorageType())
}

// GeometryArray is the array type of geometry extension columns.
type GeometryArray struct {
	array.ExtensionArrayBase
}

// WKB returns the raw bytes stored at row i.
func (a *GeometryArray) WKB(i int) []byte {
	switch s := a.Storage().(type) {
	case *array.Binary:
		return s.Value(i)
	case *array.LargeBinary:
		return s.Value(i)
	}
	return nil
}

// Text returns the geometry at row i as WKT.
func (a *GeometryArray) Text(i int) (string, error) {
	return GeometryText(a.WKB(i))
}

type geometryMetadata struct {
	CRS      *geometryCRS `json:"crs,omitempty"`
	Encoding string       `json:"encoding,omitempty"`
}

type geometryCRS struct {
	ID struct {
		Authority string `json:"authority"`
		Code      int    `json:"code"`
	} `json:"id"`
}

// NewGeometryField creates an Arrow field with geometry extension type and
// EPSG metadata for srid.
func NewGeometryField(name string, nullable bool, srid int) arrow.Field {
	extType := NewGeometryExtensionType()

	meta := geometryMetadata{CRS: &geometryCRS{}, Encoding: "WKB"}
	meta.CRS.ID.Authority = "EPSG"
	meta.CRS.ID.Code = srid
	metaJSON, _ := json.Marshal(meta)

	return arrow.Field{
		Name:     name,
		Type:     extType,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     extType.ExtensionName(),
			"ARROW:extension:metadata": string(metaJSON),
			"srid":                     strconv.Itoa(srid),
		}),
	}
}

// IsGeometryField reports whether field stores WKB geometries, either as an
// extension type or as a binary column tagged with extension metadata.
func IsGeometryField(field arrow.Field) bool {
	if ext, ok := field.Type.(arrow.ExtensionType); ok {
		return ext.ExtensionName() == GeometryExtensionName
	}
	if i := field.Metadata.FindKey("ARROW:extension:name"); i >= 0 {
		return field.Metadata.Values()[i] == GeometryExtensionName
	}
	return false
}

// EncodeGeometry converts an orb.Geometry to WKB bytes for Arrow storage.
func EncodeGeometry(geom orb.Geometry) ([]byte, error) {
	if geom == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	return wkb.Marshal(geom)
}

// DecodeGeometry converts WKB bytes from Arrow storage to orb.Geometry.
func DecodeGeometry(wkbBytes []byte) (orb.Geometry, error) {
	if len(wkbBytes) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	return wkb.Unmarshal(wkbBytes)
}

// GeometryText decodes WKB bytes and renders them as WKT
// (e.g. "POINT(1 2)").
func GeometryText(wkbBytes []byte) (string, error) {
	geom, err := DecodeGeometry(wkbBytes)
	if err != nil {
		return "", err
	}
	return wkt.MarshalString(geom), nil
}

// ParseGeometryText parses WKT and encodes it as WKB.
func ParseGeometryText(text string) ([]byte, error) {
	geom, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, err
	}
	return EncodeGeometry(geom)
}

func init() {
	_ = arrow.RegisterExtensionType(NewGeometryExtensionType())
}
