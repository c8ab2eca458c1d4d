package services

import (
	"time"

	"github.com/vytor/snapword/internal/models"
)

// Clock tells the services what day it is in the learner's time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// Today is the current review day. Time of day is dropped so a review at
// 23:59 and one at 00:01 land on different days only when the date changes
// in Location.
func (c Clock) Today() models.Date {
	return models.DateOf(c.now())
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if c.Location == nil {
		return now()
	}
	return now().In(c.Location)
}
