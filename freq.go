/*
 * freq.go, part of rotraj.
 *
 *
 * Copyright 2022 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package rotraj

import (
	"strconv"
	"time"
)

const (
	dayHours   = 24
	dayMinutes = dayHours * 60
	daySeconds = dayMinutes * 60
	dayNanos   = int64(daySeconds) * int64(time.Second)
)

// Frequency describes n samples evenly spaced along one calendar day.
type Frequency struct {
	n     int
	Step  time.Duration //the spacing. Truncated to the nanosecond when it is not a whole number of them.
	Unit  string        //"D", "H", "min" or "S". The coarsest unit that divides the spacing.
	Count float64       //how many Units per step
}

// InferFrequency returns the frequency of n samples evenly spaced throughout one day.
// One sample per day gives a calendar day. Otherwise the spacing is given in whole hours
// if possible, else whole minutes, else (possibly fractional) seconds.
// n must be positive, otherwise a *ValidationError is returned.
func InferFrequency(n int) (Frequency, error) {
	if n <= 0 {
		return Frequency{}, NewValidationError(strconv.Itoa(n), "InferFrequency", "the number of samples per day must be positive")
	}
	F := Frequency{n: n, Step: time.Duration(dayNanos / int64(n))}
	switch {
	case n == 1:
		F.Unit, F.Count = "D", 1
	case daySeconds%n != 0:
		F.Unit, F.Count = "S", float64(daySeconds)/float64(n)
	default:
		s := daySeconds / n
		switch {
		case s%3600 == 0:
			F.Unit, F.Count = "H", float64(s/3600)
		case s%60 == 0:
			F.Unit, F.Count = "min", float64(s/60)
		default:
			F.Unit, F.Count = "S", float64(s)
		}
	}
	return F, nil
}

// PerDay returns the number of samples per day.
func (F Frequency) PerDay() int {
	return F.n
}

// String returns the frequency as an offset alias, like "D", "3H", "1min" or "2.5S".
func (F Frequency) String() string {
	if F.Unit == "D" {
		return "D"
	}
	return strconv.FormatFloat(F.Count, 'f', -1, 64) + F.Unit
}

// Range returns periods timestamps starting at start and spaced by F.
// Daily frequencies advance by calendar days.
func (F Frequency) Range(start time.Time, periods int) []time.Time {
	if periods <= 0 || F.n <= 0 {
		return nil
	}
	ret := make([]time.Time, periods)
	for i := range ret {
		if F.n == 1 {
			ret[i] = start.AddDate(0, 0, i)
			continue
		}
		//computed from the start each time so fractional steps don't accumulate errors.
		days, rem := int64(i/F.n), int64(i%F.n)
		ret[i] = start.Add(time.Duration(days*dayNanos + rem*dayNanos/int64(F.n)))
	}
	return ret
}
