/*
 * attributes.go, part of rotraj.
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
	"sort"
	"strings"
)

//Names of the fixed columns of a trajectory block, in file order.
const (
	ColStep     = "STEP"
	ColHours    = "HOURS"
	ColLat      = "LAT"
	ColLon      = "LON"
	ColPressure = "P (MB)"
)

//fixedColumns are the value columns every block has, before the attributes.
//STEP is not a value column, it becomes part of the index.
var fixedColumns = [...]string{ColHours, ColLat, ColLon, ColPressure}

//attributeNames maps ROTRAJ attribute codes to readable names. It is never modified.
var attributeNames = map[int]string{
	1:   "temperature (K)",
	3:   "potential vorticity (PVU)",
	4:   "specific humidity (kg/kg)",
	10:  "height (m)",
	159: "boundary layer height (m)",
}

// AttributeName returns the readable name of the attribute with the given code,
// and false if the code is unknown.
func AttributeName(code int) (string, bool) {
	n, ok := attributeNames[code]
	return n, ok
}

// AttributeCodes returns the known attribute codes in ascending order.
func AttributeCodes() []int {
	ret := make([]int, 0, len(attributeNames))
	for k := range attributeNames {
		ret = append(ret, k)
	}
	sort.Ints(ret)
	return ret
}

// ValueColumns returns the names of the value columns of a block with the given
// attribute names: HOURS, LAT, LON, P (MB) and then the attributes.
func ValueColumns(attrNames []string) []string {
	ret := make([]string, 0, len(fixedColumns)+len(attrNames))
	ret = append(ret, fixedColumns[:]...)
	return append(ret, attrNames...)
}

//matchAttributes returns the elements of names that contain substr.
func matchAttributes(names []string, substr string) []string {
	var ret []string
	for _, v := range names {
		if strings.Contains(v, substr) {
			ret = append(ret, v)
		}
	}
	return ret
}
