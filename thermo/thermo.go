/*
 * thermo.go, part of rotraj.
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

//Package thermo calculates thermodynamic variables of air parcels.
package thermo

import (
	"fmt"
	"math"
)

//The smallest mixing ratio used, to keep the logarithm finite for dry air.
const minMixingRatio = 1.0e-10

// DomainError is returned when a variable is outside the range where the formulas are defined.
type DomainError struct {
	Variable string
	Value    float64
	deco     []string
}

func (E *DomainError) Error() string {
	return fmt.Sprintf("%s value %g out of range", E.Variable, E.Value)
}

// Decorate adds new information to the error.
func (E *DomainError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// EquPot returns the equivalent potential temperature (K) of a parcel with
// temperature t (K), specific humidity q (kg/kg) and pressure p (hPa).
// t and p must be positive and q must be in [0, 1), otherwise a *DomainError is returned.
// For dry air (q = 0) the result is, up to a negligible amount, t at 1000 hPa.
func EquPot(t, q, p float64) (float64, error) {
	if !(t > 0) {
		return 0, &DomainError{Variable: "temperature", Value: t, deco: []string{"EquPot"}}
	}
	if !(q >= 0 && q < 1) {
		return 0, &DomainError{Variable: "specific humidity", Value: q, deco: []string{"EquPot"}}
	}
	if !(p > 0) {
		return 0, &DomainError{Variable: "pressure", Value: p, deco: []string{"EquPot"}}
	}
	//mixing ratio: mass of water over mass of dry air in the parcel.
	r := math.Max(q/(1.0-q), minMixingRatio)
	//temperature at the lifting condensation level
	tl := 2840.0/(3.5*math.Log(t)-math.Log(100.0*p*r/(0.622+0.378*q))-0.1998) + 55.0
	theta := t * math.Pow(1000.0/p, 0.2854*(1.0-0.28*q))
	return theta * math.Exp((3.376/tl-0.00254)*1.0e3*r*(1.0+0.81*q)), nil
}

// Column evaluates EquPot element-wise. Elements outside the domain, such as
// the zero pressures of steps where a parcel was not released, give NaN.
// The three slices must have the same length.
func Column(t, q, p []float64) ([]float64, error) {
	if len(t) != len(q) || len(t) != len(p) {
		return nil, fmt.Errorf("thermo.Column: slices of different lengths: %d, %d, %d", len(t), len(q), len(p))
	}
	ret := make([]float64, len(t))
	for i := range t {
		v, err := EquPot(t[i], q[i], p[i])
		if err != nil {
			v = math.NaN()
		}
		ret[i] = v
	}
	return ret, nil
}
