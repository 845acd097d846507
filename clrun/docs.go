// 01   Feb. 12, 2026   Initial version

/*
Command clrun exercises the coniclifts package: it reads a model
description from a YAML file, compiles the SAGE membership constraint it
describes, and reports statistics about the assembled conic system.

A model file names an exponent matrix and a coefficient vector whose
entries are either fixed constants or free symbols:

	name: small-sage
	alpha:
	  - [0, 0]
	  - [1, 0]
	  - [0, 1]
	c:
	  - free: true
	  - value: 1
	  - value: 1
	point: [0.5, 1, 1]

The optional point assigns a value to every coefficient (fixed entries
must match their declared constants); when present, clrun also reports the
rough SAGE violation at that point.

Usage:

	clrun --model model.yaml [--verbose]
*/
package main
