// ImageFilters describe user-provided filters to narrow the image list.
package dto

import "time"

type ImageFilters struct {
	Name       string
	NetID      string
	Year       string
	SessionID  string
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}
