/*
 * doc.go, part of rotraj.
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

/*
Package rotraj reads the text output of the ROTRAJ trajectory model.

A ROTRAJ file starts with a header like

	TRAJECTORY BASE TIME IS 2019092200
	DATA BASE TIME IS 2021051700
	DATA INTERVAL IS    3 HOURS AND CONTAINS    6 TIMESTEPS
	TOTAL NUMBER OF TRAJECTORIES IS     1440
	NUMBER OF ATTRIBUTES IS    5
	ATTRIBUTE TYPES =
	  1   3   4  10 159
	NUMBER OF CLUSTERS IS    1
	CLUSTER POINTERS =
	     1
	3D TRAJECTORY ? (T OR F): T
	FORECAST DATA ? (T OR F): F
	FORWARD TRAJECTORY ? (T OR F): F

followed by one block per trajectory:

	TRAJECTORY NUMBER     1 COMPRISES    88 INTERVALS
	 STEP  HOURS  LAT  LON  P(MB)  ...attributes
	 ...89 data rows...

The package offers:

    Parsing of the header (ParseHeader), with validation of all its counts.

    Inference of the spacing between release times (InferFrequency).

    Segmentation of the data part in one block per trajectory (Decoder).

    A table indexed by (cluster, release time, step), built from the blocks
	(BuildTable). Clusters are assigned by position: the trajectories are split in
	runs of TOTAL/CLUSTERS, each labeled by the corresponding cluster pointer. Release
	times are a regular sequence, one day long, starting at the midnight of the
	trajectory base time.

    Reading of single files (ReadFile) and of one file per day over a range of dates
	(ReadRange). Missing days are skipped.

Values of each trajectory are kept in a gonum mat.Dense, one row per step.
Pressures of 0 mark steps where the parcel is not released or is below ground. They
are kept as they are, and consumers should filter them out.

Subpackages compute summaries (pivot, trajstat), thermodynamic quantities (thermo)
and write tables to other formats (stf, ncdf, store).
*/
package rotraj
