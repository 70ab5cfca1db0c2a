package model

import "time"

type Pharmacy struct {
	ID                string
	Name              string
	BusinessHoursText string
	UpdatedAt         time.Time
}
