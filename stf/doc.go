/*
 * doc.go, part of rotraj.
 *
 * Copyright 2022 Raul Mera <rauldotmeraatusachdotcl>
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
Package stf implements the simple trajectory format for ROTRAJ tables: a compressed
text format that keeps the whole index (cluster, release time, step) of each trajectory,
so a table can be stored once and read back much faster than the ROTRAJ files.

File format

An STF file may only contain ASCII symbols. It is compressed with the codec given by the
last letter of its extension: 'l' lzw, 'z' gzip, 'r' raw deflate, '4' lz4, and
z-standard (zstd) for anything else, including the usual "stf" extension.

A STF file has a "header" starting in the first line, and ending with a line that starts with the
characters "**" followed by one or more spaces, and the number of value columns per row.

Each line of the header must be a pair key=value. Only the first "=" in a line separates the key
from the value. The key "columns" holds the names of the value columns as a JSON array,
and the key "header" holds the metadata of the ROTRAJ file as a JSON object. Other keys are allowed
and are returned to the caller.

After the header, each trajectory starts with a line:

	> position number cluster release nrows

where release is an RFC 3339 time. It is followed by nrows lines, each with the step
followed by one number per value column, and by a line starting with "*", one space, and the
xxhash64 (hexadecimal) of the nrows lines, each including its final newline.

The "**" sequence may only be used as a header termination, as described above and can not appear
anywhere else in the file.
*/
package stf
