package z

import "time"

var (
	// msDosEpoch is the earliest time representable in MS-DOS format.
	msDosEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	// msDosMax is the latest time representable in MS-DOS format.
	msDosMax = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)
)

// TimeToMsDos converts a time.Time to an MS-DOS date and time.
//
// The wall clock fields of t are used as-is, the format has no notion of time zone. Any time before 1980 becomes
// 1980-01-01T00:00:00, any time after 2107 becomes 2107-12-31T23:59:58. Odd seconds are rounded down.
func TimeToMsDos(t time.Time) (dosDate, dosTime uint16) {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	switch {
	case wall.Before(msDosEpoch):
		wall = msDosEpoch
	case wall.After(msDosMax):
		wall = msDosMax
	}

	// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
	dosDate = uint16(wall.Day() + int(wall.Month())<<5 + (wall.Year()-1980)<<9)
	// time bits 0-4: second/2; 5-10: minute; 11-15: hour
	dosTime = uint16(wall.Second()/2 + wall.Minute()<<5 + wall.Hour()<<11)
	return
}

// PackMsDosTime returns the MS-DOS date in the high 16 bits and the MS-DOS time in the low 16 bits.
//
// Packed values of different times compare the same way the times do.
func PackMsDosTime(t time.Time) uint32 {
	dosDate, dosTime := TimeToMsDos(t)
	return uint32(dosDate)<<16 | uint32(dosTime)
}

// UnpackMsDosTime is the inverse of PackMsDosTime.
func UnpackMsDosTime(v uint32) time.Time {
	return MsDosTimeToTime(uint16(v>>16), uint16(v))
}

// MsDosTimeToTime converts an MS-DOS date and time into a time.Time.
// The resolution is 2s.
// See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
//
// taken from https://go.dev/src/archive/zip/struct.go.
func MsDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}
