package imaging

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata holds what a photo's EXIF block had to say about when and where it
// was taken. Absent tags are nil fields, not errors.
type Metadata struct {
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
}

// exifTimeLayout is the datetime format EXIF uses for DateTimeOriginal
const exifTimeLayout = "2006:01:02 15:04:05"

// ReadMetadata extracts the capture time and GPS coordinates embedded in a
// photo. Photos without an EXIF block (screenshots, edited exports) yield an
// empty Metadata and no error.
func ReadMetadata(data []byte) *Metadata {
	meta := &Metadata{}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, err := tag.StringVal(); err == nil {
			if t, err := time.Parse(exifTimeLayout, s); err == nil {
				meta.TakenAt = &t
			}
		}
	}

	meta.Latitude = gpsCoordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	meta.Longitude = gpsCoordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)

	return meta
}

// gpsCoordinate reads one GPS axis (three rationals plus a hemisphere
// reference) and converts it to decimal degrees
func gpsCoordinate(x *exif.Exif, tagName, refName exif.FieldName) *float64 {
	tag, err := x.Get(tagName)
	if err != nil {
		return nil
	}
	refTag, err := x.Get(refName)
	if err != nil {
		return nil
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return nil
	}

	deg, err := ratValue(tag, 0)
	if err != nil {
		return nil
	}
	min, err := ratValue(tag, 1)
	if err != nil {
		return nil
	}
	sec, err := ratValue(tag, 2)
	if err != nil {
		return nil
	}

	value := dmsToDecimal(deg, min, sec, ref)
	return &value
}

type rationalTag interface {
	Rat2(i int) (num int64, den int64, err error)
}

func ratValue(tag rationalTag, i int) (float64, error) {
	num, den, err := tag.Rat2(i)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, nil
	}
	return float64(num) / float64(den), nil
}

// dmsToDecimal converts degrees/minutes/seconds plus a hemisphere reference
// to decimal degrees. South and West are negative.
func dmsToDecimal(deg, min, sec float64, ref string) float64 {
	value := deg + min/60 + sec/3600
	if ref == "S" || ref == "W" {
		return -value
	}
	return value
}
